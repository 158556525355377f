package whatsapp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/herdlog/internal/config"
	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/domain/models"
	"github.com/mamadbah2/herdlog/internal/repository/memory"
	"github.com/mamadbah2/herdlog/internal/service/ingestion"
	client "github.com/mamadbah2/herdlog/pkg/clients/whatsapp"
)

type fakeClient struct {
	mu    sync.Mutex
	texts []client.SendTextMessageRequest
	lists []client.SendListMessageRequest
}

func (f *fakeClient) SendTextMessage(_ context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, req)
	return &client.SendTextMessageResponse{}, nil
}

func (f *fakeClient) SendListMessage(_ context.Context, req client.SendListMessageRequest) (*client.SendTextMessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, req)
	return &client.SendTextMessageResponse{}, nil
}

type fakeIngestor struct {
	requests []ingestion.Request
	results  []models.IngestResult
	err      error
}

func (f *fakeIngestor) Process(_ context.Context, req ingestion.Request) (models.IngestResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return models.IngestResult{}, f.err
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res, nil
}

func newTestService(t *testing.T, ingestor Ingestor) (*MetaWhatsAppService, *fakeClient) {
	t.Helper()
	store := memory.NewStore()
	store.PutMember(models.Membership{UserID: "u-1", FarmID: "farm-1", Role: models.RoleFarmhand, Phone: "224620000001"})
	store.PutAnimal(models.Animal{ID: "cow-1", FarmID: "farm-1", EarTag: "A002", Name: "Bessie"})
	store.PutAnimal(models.Animal{ID: "cow-2", FarmID: "farm-1", EarTag: "A0021", Name: "Daisy"})

	wa := &fakeClient{}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{VerifyToken: "secret"}, wa, ingestor, store, NewSessionManager(time.Minute), zaptest.NewLogger(t))
	return svc, wa
}

func textPayload(from, body string) models.WebhookPayload {
	return payloadOf(models.InboundMessage{From: from, ID: "wamid.1", Type: "text", Text: &models.TextContent{Body: body}})
}

func listReplyPayload(from, id string) models.WebhookPayload {
	return payloadOf(models.InboundMessage{
		From:        from,
		ID:          "wamid.2",
		Type:        "interactive",
		Interactive: &models.InteractiveContent{Type: "list_reply", ListReply: &models.ListReply{ID: id}},
	})
}

func payloadOf(msg models.InboundMessage) models.WebhookPayload {
	return models.WebhookPayload{Entry: []models.WebhookEntry{{
		Changes: []models.WebhookChange{{Value: models.WebhookValue{Messages: []models.InboundMessage{msg}}}},
	}}}
}

func TestVerifyWebhookToken(t *testing.T) {
	svc, _ := newTestService(t, &fakeIngestor{})

	challenge, err := svc.VerifyWebhookToken("subscribe", "secret", "42")
	require.NoError(t, err)
	assert.Equal(t, "42", challenge)

	_, err = svc.VerifyWebhookToken("subscribe", "wrong", "42")
	assert.Error(t, err)

	_, err = svc.VerifyWebhookToken("unsubscribe", "secret", "42")
	assert.Error(t, err)
}

func TestHandleWebhook_RecordsReportAndReplies(t *testing.T) {
	ing := &fakeIngestor{results: []models.IngestResult{{
		Outcome: models.OutcomeCommitted,
		Message: models.Bilingual{FR: "Activité enregistrée", EN: "Activity recorded"},
	}}}
	svc, wa := newTestService(t, ing)

	require.NoError(t, svc.HandleWebhook(context.Background(), textPayload("224620000001", "Fed the cows 250kg of hay")))

	require.Len(t, ing.requests, 1)
	assert.Equal(t, "Fed the cows 250kg of hay", ing.requests[0].Transcription)
	assert.Equal(t, models.Actor{UserID: "u-1", FarmID: "farm-1", Role: models.RoleFarmhand}, ing.requests[0].Actor)
	require.Len(t, wa.texts, 1)
	assert.Equal(t, "Activité enregistrée\nActivity recorded", wa.texts[0].Body)
	assert.Equal(t, "224620000001", wa.texts[0].To)
}

func TestHandleWebhook_UnknownSender(t *testing.T) {
	ing := &fakeIngestor{}
	svc, wa := newTestService(t, ing)

	require.NoError(t, svc.HandleWebhook(context.Background(), textPayload("33600000000", "Fed the cows")))

	assert.Empty(t, ing.requests)
	require.Len(t, wa.texts, 1)
	assert.Equal(t, replyUnknownSender.String(), wa.texts[0].Body)
}

func TestHandleWebhook_VoiceNoteAsksForText(t *testing.T) {
	ing := &fakeIngestor{}
	svc, wa := newTestService(t, ing)

	msg := models.InboundMessage{From: "224620000001", ID: "wamid.3", Type: "audio", Audio: &models.MediaContent{ID: "media-1"}}
	require.NoError(t, svc.HandleWebhook(context.Background(), payloadOf(msg)))

	assert.Empty(t, ing.requests)
	require.Len(t, wa.texts, 1)
	assert.Equal(t, replyVoiceNote.String(), wa.texts[0].Body)
}

func TestHandleWebhook_AnimalSelectionRoundTrip(t *testing.T) {
	ing := &fakeIngestor{results: []models.IngestResult{
		{
			Outcome: models.OutcomeClarification,
			Code:    errs.CodeNeedsAnimalSelection,
			Message: models.Bilingual{FR: "Quel animal ?", EN: "Which animal?"},
			Options: []string{"A002 Bessie", "A0021 Daisy"},
		},
		{Outcome: models.OutcomeCommitted, Message: models.Bilingual{EN: "Activity recorded"}},
	}}
	svc, wa := newTestService(t, ing)
	ctx := context.Background()

	require.NoError(t, svc.HandleWebhook(ctx, textPayload("224620000001", "The cow weighs 420kg")))
	require.Len(t, wa.lists, 1)
	require.Len(t, wa.lists[0].Options, 2)
	assert.Equal(t, "opt:1", wa.lists[0].Options[1].ID)
	assert.Equal(t, "A0021 Daisy", wa.lists[0].Options[1].Title)

	require.NoError(t, svc.HandleWebhook(ctx, listReplyPayload("224620000001", "opt:1")))

	require.Len(t, ing.requests, 2)
	assert.Equal(t, "The cow weighs 420kg", ing.requests[1].Transcription)
	assert.Equal(t, "cow-2", ing.requests[1].AnimalID)
	require.Len(t, wa.texts, 1)
	assert.Equal(t, "Activity recorded", wa.texts[0].Body)

	_, open := svc.sessions.GetSession("224620000001")
	assert.False(t, open)
}

func TestHandleWebhook_FeedChoiceSetsHint(t *testing.T) {
	ing := &fakeIngestor{results: []models.IngestResult{
		{
			Outcome: models.OutcomeClarification,
			Code:    errs.CodeAmbiguousFeedType,
			Message: models.Bilingual{EN: "Which feed?"},
			Options: []string{"Maize Bran", "Maize Silage"},
		},
		{Outcome: models.OutcomeCommitted, Message: models.Bilingual{EN: "ok"}},
	}}
	svc, _ := newTestService(t, ing)
	svc.sessions.UpdateSession("224620000001", Clarification{Code: errs.CodeNeedsAnimalSelection, AnimalID: "cow-1"})
	ctx := context.Background()

	require.NoError(t, svc.HandleWebhook(ctx, textPayload("224620000001", "Gave Bessie 5kg maize")))
	require.NoError(t, svc.HandleWebhook(ctx, listReplyPayload("224620000001", "opt:0")))

	require.Len(t, ing.requests, 2)
	assert.Empty(t, ing.requests[0].AnimalID, "a new report starts a fresh session")
	assert.Equal(t, "Maize Bran", ing.requests[1].FeedTypeHint)
	assert.Equal(t, "Gave Bessie 5kg maize", ing.requests[1].Transcription)
}

func TestHandleWebhook_ExpiredChoice(t *testing.T) {
	ing := &fakeIngestor{}
	svc, wa := newTestService(t, ing)

	require.NoError(t, svc.HandleWebhook(context.Background(), listReplyPayload("224620000001", "opt:0")))

	assert.Empty(t, ing.requests)
	require.Len(t, wa.texts, 1)
	assert.Equal(t, replyExpired.String(), wa.texts[0].Body)
}

func TestHandleWebhook_InfrastructureFailure(t *testing.T) {
	ing := &fakeIngestor{err: errors.New("mongo down")}
	svc, wa := newTestService(t, ing)

	err := svc.HandleWebhook(context.Background(), textPayload("224620000001", "Fed the cows"))
	require.Error(t, err)
	require.Len(t, wa.texts, 1)
	assert.Equal(t, replyTechnical.String(), wa.texts[0].Body)
}

func TestSessionManager_Expiry(t *testing.T) {
	sm := NewSessionManager(time.Minute)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }

	sm.UpdateSession("a", Clarification{Transcription: "x"})
	_, ok := sm.GetSession("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = sm.GetSession("a")
	assert.False(t, ok)
}
