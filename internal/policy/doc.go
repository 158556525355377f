// Package policy provides the farm approval policy: whether a (farm, actor, activity kind) submission
// must wait for manager review and how long before it is approved automatically. Rules come from a
// YAML file with a default rule and per-farm overrides; owners and managers are exempt unless a farm
// says otherwise.
package policy
