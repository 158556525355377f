package policy

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mamadbah2/herdlog/internal/domain/models"
)

const defaultAutoApproveAfter = 48 * time.Hour

// Rule describes when activities of a farm need manager review.
type Rule struct {
	ApprovalEnabled       *bool    `yaml:"approval_enabled"`
	AutoApproveAfterHours int      `yaml:"auto_approve_after_hours"`
	ExemptRoles           []string `yaml:"exempt_roles"`
	Kinds                 []string `yaml:"kinds"` // empty means every kind
}

// Config is the policy file layout: a default rule plus per-farm overrides.
type Config struct {
	Default Rule            `yaml:"default"`
	Farms   map[string]Rule `yaml:"farms"`
}

// Engine answers approval questions from a static configuration.
type Engine struct {
	def   Rule
	farms map[string]Rule
}

// NewDisabled returns an engine that never requires approval.
func NewDisabled() *Engine {
	off := false
	return &Engine{def: Rule{ApprovalEnabled: &off}, farms: map[string]Rule{}}
}

// NewFromConfig builds an engine from an in-memory configuration.
func NewFromConfig(cfg Config) *Engine {
	farms := make(map[string]Rule, len(cfg.Farms))
	for id, r := range cfg.Farms {
		farms[id] = r
	}
	def := cfg.Default
	if len(def.ExemptRoles) == 0 {
		def.ExemptRoles = []string{string(models.RoleOwner), string(models.RoleManager)}
	}
	return &Engine{def: def, farms: farms}
}

// LoadFile reads a YAML policy file. An empty path yields a disabled engine.
func LoadFile(path string) (*Engine, error) {
	if strings.TrimSpace(path) == "" {
		return NewDisabled(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read approval policy %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse approval policy %s: %w", path, err)
	}
	return NewFromConfig(cfg), nil
}

// RequiresApproval reports whether actor's activity of kind on farmID must be reviewed, and how long
// the queue waits before auto-approving it.
func (e *Engine) RequiresApproval(_ context.Context, farmID string, actor models.Actor, kind models.ActivityKind) (bool, time.Duration, error) {
	r := e.effective(farmID)
	after := time.Duration(r.AutoApproveAfterHours) * time.Hour
	if after <= 0 {
		after = defaultAutoApproveAfter
	}

	if r.ApprovalEnabled == nil || !*r.ApprovalEnabled {
		return false, after, nil
	}
	for _, role := range r.ExemptRoles {
		if strings.EqualFold(role, string(actor.Role)) {
			return false, after, nil
		}
	}
	if len(r.Kinds) > 0 && !contains(r.Kinds, string(kind)) {
		return false, after, nil
	}
	return true, after, nil
}

// effective overlays the farm rule on the default rule.
func (e *Engine) effective(farmID string) Rule {
	r := e.def
	o, ok := e.farms[farmID]
	if !ok {
		return r
	}
	if o.ApprovalEnabled != nil {
		r.ApprovalEnabled = o.ApprovalEnabled
	}
	if o.AutoApproveAfterHours > 0 {
		r.AutoApproveAfterHours = o.AutoApproveAfterHours
	}
	if len(o.ExemptRoles) > 0 {
		r.ExemptRoles = o.ExemptRoles
	}
	if len(o.Kinds) > 0 {
		r.Kinds = o.Kinds
	}
	return r
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
