// Package whatsapp connects farmhands on WhatsApp to the ingestion pipeline: each text message is a
// report, and clarification questions are answered with interactive list replies.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herdlog/internal/config"
	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/domain/models"
	"github.com/mamadbah2/herdlog/internal/service/ingestion"
	client "github.com/mamadbah2/herdlog/pkg/clients/whatsapp"
)

const (
	sendTimeout  = 10 * time.Second
	optionPrefix = "opt:"
)

var (
	replyUnknownSender = models.Bilingual{
		FR: "Ce numéro n'est rattaché à aucune ferme. Contactez votre gérant.",
		EN: "This number is not linked to any farm. Please contact your manager.",
	}
	replyVoiceNote = models.Bilingual{
		FR: "Les notes vocales ne sont pas prises en charge. Envoyez la transcription en texte.",
		EN: "Voice notes are not supported. Please send the transcription as text.",
	}
	replyExpired = models.Bilingual{
		FR: "Cette question a expiré. Renvoyez votre rapport.",
		EN: "This question has expired. Please send your report again.",
	}
	replyTechnical = models.Bilingual{
		FR: "Erreur technique, votre rapport n'a pas été enregistré. Réessayez plus tard.",
		EN: "Technical error, your report was not recorded. Please try again later.",
	}
)

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Ingestor runs a report through the pipeline.
type Ingestor interface {
	Process(ctx context.Context, req ingestion.Request) (models.IngestResult, error)
}

// Directory maps senders to farm members and animal labels back to animals.
type Directory interface {
	FindMemberByPhone(ctx context.Context, phone string) (models.Membership, error)
	ListAnimals(ctx context.Context, farmID string) ([]models.Animal, error)
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg       config.WhatsAppConfig
	client    client.Client
	ingestor  Ingestor
	directory Directory
	sessions  *SessionManager
	logger    *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, ingestor Ingestor, directory Directory, sessions *SessionManager, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:       cfg,
		client:    client,
		ingestor:  ingestor,
		directory: directory,
		sessions:  sessions,
		logger:    logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.sessions == nil {
		svc.sessions = NewSessionManager(DefaultSessionTTL)
	}
	return svc
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook processes inbound webhook payloads.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	member, err := s.directory.FindMemberByPhone(ctx, msg.From)
	if errors.Is(err, models.ErrNotFound) {
		s.logger.Warn("message from unknown sender", zap.String("from", msg.From))
		return s.reply(ctx, msg.From, replyUnknownSender)
	}
	if err != nil {
		return fmt.Errorf("look up sender: %w", err)
	}

	var req ingestion.Request
	switch {
	case msg.Interactive != nil && msg.Interactive.ListReply != nil:
		var ok bool
		req, ok, err = s.answer(ctx, member, msg.From, msg.Interactive.ListReply)
		if err != nil {
			return err
		}
		if !ok {
			return s.reply(ctx, msg.From, replyExpired)
		}
	case msg.Text != nil && strings.TrimSpace(msg.Text.Body) != "":
		s.sessions.ClearSession(msg.From)
		req = ingestion.Request{Transcription: msg.Text.Body}
	case msg.Audio != nil:
		return s.reply(ctx, msg.From, replyVoiceNote)
	default:
		return errors.New("empty message body")
	}
	req.Actor = member.Actor()

	result, err := s.ingestor.Process(ctx, req)
	if err != nil {
		if rerr := s.reply(ctx, msg.From, replyTechnical); rerr != nil {
			s.logger.Error("failed to send error reply", zap.Error(rerr))
		}
		return fmt.Errorf("process report: %w", err)
	}

	s.logger.Info("report processed",
		zap.String("from", msg.From),
		zap.String("farm_id", member.FarmID),
		zap.String("outcome", string(result.Outcome)),
		zap.String("code", result.Code))

	if result.Outcome == models.OutcomeClarification && len(result.Options) > 0 {
		s.sessions.UpdateSession(msg.From, Clarification{
			Transcription: req.Transcription,
			Code:          result.Code,
			Options:       result.Options,
			AnimalID:      req.AnimalID,
			FeedTypeHint:  req.FeedTypeHint,
		})
		return s.askToChoose(ctx, msg.From, result)
	}

	s.sessions.ClearSession(msg.From)
	return s.reply(ctx, msg.From, result.Message)
}

// answer rebuilds the original request with the option the sender picked.
func (s *MetaWhatsAppService) answer(ctx context.Context, member models.Membership, sender string, choice *models.ListReply) (ingestion.Request, bool, error) {
	session, ok := s.sessions.GetSession(sender)
	if !ok {
		return ingestion.Request{}, false, nil
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(choice.ID, optionPrefix))
	if err != nil || idx < 0 || idx >= len(session.Options) {
		return ingestion.Request{}, false, nil
	}
	picked := session.Options[idx]

	req := ingestion.Request{
		Transcription: session.Transcription,
		AnimalID:      session.AnimalID,
		FeedTypeHint:  session.FeedTypeHint,
	}
	switch session.Code {
	case errs.CodeNeedsAnimalSelection:
		animals, err := s.directory.ListAnimals(ctx, member.FarmID)
		if err != nil {
			return ingestion.Request{}, false, fmt.Errorf("load farm roster: %w", err)
		}
		for _, a := range animals {
			if a.Label() == picked {
				req.AnimalID = a.ID
				break
			}
		}
		if req.AnimalID == "" {
			return ingestion.Request{}, false, nil
		}
	default:
		req.FeedTypeHint = picked
	}
	return req, true, nil
}

func (s *MetaWhatsAppService) askToChoose(ctx context.Context, to string, result models.IngestResult) error {
	options := make([]client.ListOption, 0, len(result.Options))
	for i, o := range result.Options {
		options = append(options, client.ListOption{ID: optionPrefix + strconv.Itoa(i), Title: o})
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendListMessage(ctxWithTimeout, client.SendListMessageRequest{
		To:      to,
		Body:    result.Message.String(),
		Options: options,
	})
	return err
}

func (s *MetaWhatsAppService) reply(ctx context.Context, to string, message models.Bilingual) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:   to,
		Body: message.String(),
	})
	return err
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	return err
}
