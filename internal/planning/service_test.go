package planning

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carpenike/helix/internal/llm"
	"github.com/carpenike/helix/internal/models"
)

const replyWithPlan = "Ecco una proposta per Anna.\n\n```training_plan\n" + annaPlan + "\n```\n\nFammi sapere se va bene."

func TestSendMessage_SavesReplyAndPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.configureAI(t, models.ProviderOpenAI, "sk-test-openai")
	f.exercise(t, "Squat")
	f.gym(t, "Palestra Centro")
	conv := f.conversation(t)
	f.provider.Reply = replyWithPlan

	res, err := f.svc.SendMessage(ctx, f.coach.ID, conv.ID, "Prepara una sessione per le gambe")
	require.NoError(t, err)

	assert.Equal(t, models.RoleUser, res.UserMessage.Role)
	assert.Equal(t, models.RoleAssistant, res.AssistantMessage.Role)
	assert.Equal(t, replyWithPlan, res.AssistantMessage.Content)
	require.NotNil(t, res.Plan)
	assert.Equal(t, "2025-03-15", res.Plan.SessionDate)
	assert.Len(t, res.Plan.Exercises, 3)
	assert.Equal(t, "openai", res.Provider)
	assert.Equal(t, "test-model", res.Model)

	require.Equal(t, 1, f.provider.CallCount())
	call := f.provider.Calls[0]
	assert.Equal(t, "sk-test-openai", call.APIKey)
	assert.Equal(t, "test-model", call.Model)
	require.Len(t, call.Messages, 2)
	assert.Equal(t, llm.RoleSystem, call.Messages[0].Role)
	assert.Contains(t, call.Messages[0].Content, "Anna")
	assert.Contains(t, call.Messages[0].Content, "Tonificazione")
	assert.Contains(t, call.Messages[0].Content, "Squat")
	assert.Contains(t, call.Messages[0].Content, "Palestra Centro")
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "Prepara una sessione per le gambe"}, call.Messages[1])

	view, err := f.svc.LoadConversation(ctx, f.coach.ID, conv.ID)
	require.NoError(t, err)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, res.UserMessage.ID, view.Messages[0].ID)
	assert.Equal(t, res.AssistantMessage.ID, view.Messages[1].ID)
	require.NotNil(t, view.PendingPlan)
	assert.Equal(t, "squat", view.PendingPlan.Exercises[0].ExerciseName)
}

func TestSendMessage_CarriesHistoryWithoutSystemMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.configureAI(t, models.ProviderAnthropic, "sk-ant-test")
	conv := f.conversation(t)

	_, err := f.store.AppendMessage(ctx, conv.ID, models.RoleSystem, "nota interna")
	require.NoError(t, err)
	f.provider.Replies = []string{"Prima risposta", "Seconda risposta"}

	_, err = f.svc.SendMessage(ctx, f.coach.ID, conv.ID, "Ciao")
	require.NoError(t, err)
	res, err := f.svc.SendMessage(ctx, f.coach.ID, conv.ID, "Aggiungi del cardio")
	require.NoError(t, err)
	assert.Nil(t, res.Plan)

	require.Equal(t, 2, f.provider.CallCount())
	msgs := f.provider.Calls[1].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.NotContains(t, msgs[0].Content, "nota interna")
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "Ciao"},
		{Role: llm.RoleAssistant, Content: "Prima risposta"},
		{Role: llm.RoleUser, Content: "Aggiungi del cardio"},
	}, msgs[1:])
	assert.Equal(t, "sk-ant-test", f.provider.Calls[1].APIKey)

	_, err = models.LatestUnacceptedPlan(ctx, f.db, conv.ID)
	assert.ErrorIs(t, err, models.ErrNotFound, "replies without a plan store none")
}

func TestSendMessage_NoSettings(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t)

	_, err := f.svc.SendMessage(context.Background(), f.coach.ID, conv.ID, "Ciao")
	require.ErrorIs(t, err, ErrNoSettings)
	assert.Equal(t, "Impostazioni AI non configurate", UserMessage(err))
	assert.Zero(t, f.countRows(t, "ai_messages"))
	assert.Zero(t, f.provider.CallCount())
}

func TestSendMessage_MissingKey(t *testing.T) {
	f := newFixture(t)
	f.configureAI(t, models.ProviderOpenAI, "")
	conv := f.conversation(t)

	_, err := f.svc.SendMessage(context.Background(), f.coach.ID, conv.ID, "Ciao")
	require.ErrorIs(t, err, llm.ErrMissingAPIKey)
	assert.Equal(t, "API key per OpenAI non configurata", UserMessage(err))
	assert.Zero(t, f.countRows(t, "ai_messages"))
	assert.Zero(t, f.provider.CallCount())
}

func TestSendMessage_EmptyMessage(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t)

	_, err := f.svc.SendMessage(context.Background(), f.coach.ID, conv.ID, "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendMessage_ProviderFailureKeepsUserMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.configureAI(t, models.ProviderOpenAI, "sk-test")
	conv := f.conversation(t)
	f.provider.Err = &llm.APIError{Provider: "OpenAI", StatusCode: http.StatusUnauthorized, Body: "invalid key"}

	_, err := f.svc.SendMessage(ctx, f.coach.ID, conv.ID, "Ciao")
	require.Error(t, err)

	var apiErr *llm.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, strings.Contains(UserMessage(err), "non valida"), UserMessage(err))

	msgs, err := models.ListMessages(ctx, f.db, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
}

func TestSendMessage_OtherCoach(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t)
	other, err := models.CreateUser(ctx, f.db, "intruder", "password123", "")
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, other.ID, conv.ID, "Ciao")
	require.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.svc.LoadConversation(ctx, other.ID, conv.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestStartConversation_RequiresOwnClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, err := models.CreateUser(ctx, f.db, "intruder", "password123", "")
	require.NoError(t, err)

	_, err = f.svc.StartConversation(ctx, other.ID, f.client.ID)
	require.ErrorIs(t, err, models.ErrNotFound)

	conv, err := f.svc.StartConversation(ctx, f.coach.ID, f.client.ID)
	require.NoError(t, err)
	assert.False(t, conv.Title.Valid)

	list, err := f.svc.ListConversations(ctx, f.coach.ID, &f.client.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, conv.ID, list[0].ID)
}

func TestSendThenAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.configureAI(t, models.ProviderOpenAI, "sk-test")
	conv := f.conversation(t)
	f.provider.Reply = replyWithPlan

	_, err := f.svc.SendMessage(ctx, f.coach.ID, conv.ID, "Prepara la sessione")
	require.NoError(t, err)

	res, err := f.svc.AcceptPlan(ctx, f.coach.ID, conv.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Added)
	assert.ElementsMatch(t, []string{"squat", "Affondi", "Plank"}, res.Created)

	view, err := f.svc.LoadConversation(ctx, f.coach.ID, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, view.PendingPlan)
	assert.Equal(t, "Piano per Anna - 2025-03-15", view.Conversation.Title.String)
}
