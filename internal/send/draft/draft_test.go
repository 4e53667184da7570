package draft

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cds-snc/notification-admin-sub002/internal/common/database"
	apperrors "github.com/cds-snc/notification-admin-sub002/internal/common/errors"
	"github.com/cds-snc/notification-admin-sub002/internal/common/logger"
	"github.com/cds-snc/notification-admin-sub002/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(database.NewRedisFromClient(client), time.Hour, logger.NewTestLogger(t)), mr
}

var emailTemplate = &models.Template{
	ID:      "tmpl-1",
	Type:    models.TemplateTypeEmail,
	Subject: "Hi ((first))",
	Content: "See you in ((city))",
}

// ==========================
// Values
// ==========================

func TestValues_OrderAndJSON(t *testing.T) {
	v := NewValues()
	v.Set("city", "Ottawa")
	v.Set("First", "Jo")
	v.Set("CITY", "Hull")

	assert.Equal(t, []string{"city", "First"}, v.Keys())
	got, ok := v.Get("first")
	require.True(t, ok)
	assert.Equal(t, "Jo", got)

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"city":"Hull","First":"Jo"}`, string(raw))

	var back Values
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, v.Keys(), back.Keys())
	assert.Equal(t, v.Map(), back.Map())
}

func TestValues_UnmarshalRejectsNonObject(t *testing.T) {
	var v Values
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &v))
	assert.NoError(t, json.Unmarshal([]byte(`null`), &v))
	assert.Equal(t, 0, v.Len())
}

// ==========================
// Draft transitions
// ==========================

func TestSendDraft_ClearRecipients(t *testing.T) {
	d := SendDraft{TemplateID: "tmpl-1", SenderID: "s1", LetterPageCount: 2, StepIndex: 3}
	d.SetValue(emailTemplate, "email address", "user@x.ca")
	d.SetValue(emailTemplate, "first", "Jo")
	assert.Equal(t, "user@x.ca", d.Recipient)

	d.ClearRecipients()
	assert.Empty(t, d.Recipient)
	assert.Equal(t, 0, d.PlaceholderValues.Len())
	assert.Zero(t, d.LetterPageCount)
	assert.Zero(t, d.StepIndex)
	assert.Equal(t, "s1", d.SenderID)
}

func TestSendDraft_ForTemplate(t *testing.T) {
	d := SendDraft{TemplateID: "tmpl-1", SenderID: "s1"}
	d.ForTemplate("tmpl-1")
	assert.Equal(t, "s1", d.SenderID)
	d.ForTemplate("tmpl-2")
	assert.Equal(t, SendDraft{TemplateID: "tmpl-2"}, d)
}

func TestSendDraft_PrunedAndComplete(t *testing.T) {
	d := SendDraft{TemplateID: "tmpl-1"}
	d.SetValue(emailTemplate, "email address", "user@x.ca")
	d.SetValue(emailTemplate, "first", "Jo")
	d.SetValue(emailTemplate, "stale", "x")
	assert.False(t, d.Complete(emailTemplate))

	d.Pruned(emailTemplate)
	assert.Equal(t, []string{"email address", "first"}, d.PlaceholderValues.Keys())

	d.SetValue(emailTemplate, "city", "Ottawa")
	assert.True(t, d.Complete(emailTemplate))
}

func TestState_Flashes(t *testing.T) {
	st := &State{}
	st.AddFlash("error", "Timed out")
	assert.Len(t, st.PopFlashes(), 1)
	assert.Empty(t, st.PopFlashes())
}

// ==========================
// Store
// ==========================

func TestStore_RoundTrip(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	st, err := store.Create(ctx, models.User{ID: "u1", EmailAddress: "me@gov.ca"})
	require.NoError(t, err)
	assert.True(t, mr.Exists("session:"+st.Session.ID))

	st.Draft.TemplateID = "tmpl-1"
	st.Draft.SetValue(emailTemplate, "first", "Jo")
	st.Draft.SetValue(emailTemplate, "city", "Ottawa")
	require.NoError(t, store.Save(ctx, st))

	loaded, err := store.Load(ctx, st.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@gov.ca", loaded.Session.User.EmailAddress)
	assert.Equal(t, []string{"first", "city"}, loaded.Draft.PlaceholderValues.Keys())
	assert.Greater(t, mr.TTL("session:"+st.Session.ID), time.Duration(0))
}

func TestStore_LoadMissingAndExpired(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Load(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	st, err := store.Create(ctx, models.User{ID: "u1"})
	require.NoError(t, err)
	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = store.Load(ctx, st.Session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_RedisFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStore(database.NewRedisFromClient(db), time.Hour, logger.NewNoOpLogger())

	mock.ExpectGet("session:abc").SetErr(errors.New("connection refused"))
	_, err := store.Load(context.Background(), "abc")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStorageFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}
