package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/agenthands/leadblitz/internal/core/auth"
	"github.com/agenthands/leadblitz/internal/core/enrich"
	"github.com/agenthands/leadblitz/internal/core/model"
)

func TestTemplates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SaveTemplate(ctx, f.userID, TemplateRequest{Subject: "no name"})
	assert.Equal(t, KindInvalid, kindOf(err))

	saved, err := f.svc.SaveTemplate(ctx, f.userID, TemplateRequest{Name: "Intro", Subject: "Hi {{name}}", Body: "Hello"})
	require.NoError(t, err)
	require.NotEmpty(t, saved.Template.ID)

	_, err = f.svc.SaveTemplate(ctx, f.userID, TemplateRequest{ID: saved.Template.ID, Name: "Intro v2", Body: "Hey"})
	require.NoError(t, err)

	list, err := f.svc.ListTemplates(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, list.Templates, 1)
	assert.Equal(t, "Intro v2", list.Templates[0].Name)

	ack, err := f.svc.DeleteTemplate(ctx, f.userID, saved.Template.ID)
	require.NoError(t, err)
	assert.Equal(t, "Template deleted", ack.Message)
	_, err = f.svc.DeleteTemplate(ctx, f.userID, saved.Template.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestAPIKeys_SealedAndMasked(t *testing.T) {
	box, err := auth.NewBox("test-secret")
	require.NoError(t, err)
	f := newFixture(t, func(d *Deps) { d.Secrets = box })
	ctx := context.Background()

	ack, err := f.svc.UpdateAPIKeys(ctx, f.userID, APIKeysUpdate{
		TwilioAccountSID: strPtr("AC123"),
		HunterAPIKey:     strPtr("hunter-secret-9876"),
	})
	require.NoError(t, err)
	assert.Equal(t, "API keys updated successfully", ack.Message)

	raw, err := f.store.GetSettings(ctx, f.userID)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter-secret-9876", raw.HunterKey)
	assert.NotEmpty(t, raw.HunterKey)

	keys, err := f.svc.APIKeys(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "AC123", keys.TwilioAccountSID)
	assert.Equal(t, "****9876", keys.HunterAPIKey)
	assert.Equal(t, "", keys.TwilioAuthToken)

	_, err = f.svc.UpdateAPIKeys(ctx, f.userID, APIKeysUpdate{TwilioPhoneNumber: strPtr("+1555")})
	require.NoError(t, err)
	keys, err = f.svc.APIKeys(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "****9876", keys.HunterAPIKey)
	assert.Equal(t, "+1555", keys.TwilioPhoneNumber)
}

func TestEmailSettingsLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.svc.EmailStatus(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.Equal(t, model.ProviderNone, status.Provider)

	ack, err := f.svc.DisconnectEmail(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "No email provider was connected", ack.Message)

	ack, err = f.svc.ConfigureSMTP(ctx, f.userID, SMTPSettings{
		Host: "smtp.mail.test", Username: "me", Password: "pw", FromEmail: "me@mail.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp", ack.Provider)

	status, err = f.svc.EmailStatus(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.Equal(t, 587, status.SMTPPort)
	require.NotNil(t, status.Email)
	assert.Equal(t, "me@mail.test", *status.Email)

	ack, err = f.svc.DisconnectEmail(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "SMTP disconnected successfully", ack.Message)
	status, err = f.svc.EmailStatus(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, status.Configured)

	_, err = f.svc.ConfigureSMTP(ctx, f.userID, SMTPSettings{Host: "smtp.mail.test"})
	assert.Equal(t, KindInvalid, kindOf(err))
}

func TestCreditsAndAdminGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.Credits(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 10, view.Balance)
	assert.Equal(t, 2, view.Costs["sms_send"])

	_, err = f.svc.AdminGrant(ctx, "admin", f.userID, 0, "")
	assert.Equal(t, KindInvalid, kindOf(err))
	_, err = f.svc.AdminGrant(ctx, "admin", "nobody@leadblitz.test", 5, "")
	assert.ErrorIs(t, err, ErrUserNotFound)

	res, err := f.svc.AdminGrant(ctx, "admin", "OWNER@leadblitz.test", 25, "")
	require.NoError(t, err)
	assert.Equal(t, 35, res.NewBalance)
	assert.Equal(t, "Added 25 credits to owner@leadblitz.test", res.Message)

	txs, err := f.svc.Transactions(ctx, f.userID, 0)
	require.NoError(t, err)
	var descriptions []string
	for _, tx := range txs.Transactions {
		descriptions = append(descriptions, tx.Description)
	}
	assert.Contains(t, descriptions, "Admin credit adjustment")
}

func TestEnrichFromWebsite(t *testing.T) {
	ext := &MockExtractor{Findings: map[string]*enrich.Findings{
		"https://acme.test": {Emails: []string{"sales@other.test", "info@acme.test"}, Phones: []string{"+1 555 0100"}},
	}}
	f := newFixture(t, func(d *Deps) { d.Enricher = ext })
	ctx := context.Background()
	f.insert(t,
		&model.Lead{ID: "l1", Name: "Acme", Website: "https://acme.test"},
		&model.Lead{ID: "l2", Name: "Empty", Website: "https://empty.test"},
		&model.Lead{ID: "l3", Name: "Known", Website: "https://known.test", Email: "a@known.test"},
	)

	res, err := f.svc.EnrichFromWebsite(ctx, f.userID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	l := f.lead(t, "l1")
	assert.Equal(t, "info@acme.test", l.Email)
	assert.Equal(t, model.EmailSourceWebsite, l.EmailSource)
	assert.Equal(t, websiteConfidence, l.EmailConfidence)
	assert.Equal(t, "+1 555 0100", l.Phone)
	assert.ElementsMatch(t, []string{"sales@other.test", "info@acme.test"}, l.EmailCandidates)
}

func TestEnrichFromHunter(t *testing.T) {
	hunter := &MockHunter{Emails: map[string][]enrich.HunterEmail{
		"acme.test": {{Email: "jane@acme.test", Confidence: 0.92}, {Email: "info@acme.test", Confidence: 0.5}},
	}}
	f := newFixture(t, func(d *Deps) { d.Hunter = hunter })
	ctx := context.Background()
	f.insert(t,
		&model.Lead{ID: "l1", Name: "Acme", Website: "https://www.acme.test"},
		&model.Lead{ID: "l2", Name: "Ghost", Website: "https://ghost.test"},
	)

	_, err := f.svc.EnrichFromHunter(ctx, f.userID, nil, 0)
	assert.ErrorIs(t, err, ErrHunterNotConfigured)

	f.cfg.Hunter.APIKey = "hk"
	res, err := f.svc.EnrichFromHunter(ctx, f.userID, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	require.NotNil(t, res.CreditsUsed)
	assert.Equal(t, 4, *res.CreditsUsed)
	assert.Equal(t, 6, f.balance(t))

	l := f.lead(t, "l1")
	assert.Equal(t, "jane@acme.test", l.Email)
	assert.Equal(t, model.EmailSourceHunter, l.EmailSource)
	assert.Equal(t, 0.92, l.EmailConfidence)
	assert.Len(t, l.EmailCandidates, 2)
}

func TestEnrichFromHunter_InsufficientCredits(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Hunter = &MockHunter{} })
	f.cfg.Hunter.APIKey = "hk"
	var leads []*model.Lead
	for i := range 6 {
		leads = append(leads, &model.Lead{ID: string(rune('a' + i)), Name: "L", Website: "https://site" + string(rune('a'+i)) + ".test"})
	}
	f.insert(t, leads...)

	_, err := f.svc.EnrichFromHunter(context.Background(), f.userID, nil, 3)
	assert.Equal(t, KindPaymentRequired, kindOf(err))
	assert.Contains(t, err.Error(), "You need 12 credits but only have 10")
}

func TestImportCSV_ScoresInBackground(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))

	f := newFixture(t)
	ctx := context.Background()
	content := "business_name,website_url,email\n" +
		"Acme,acme.test,info@acme.test\n" +
		"Acme Again,https://www.acme.test,\n" +
		"No Site,,\n"

	res, err := f.svc.ImportCSV(ctx, f.userID, "leads.csv", []byte(content))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Summary.ToScore)
	assert.Equal(t, 1, res.Summary.SkippedDuplicate)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Shutdown(shutdownCtx))

	st, err := f.svc.ImportStatus(ctx, f.userID, res.ImportID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Scored)
	assert.Equal(t, model.ImportCompleted, st.Status)

	_, err = f.svc.ImportStatus(ctx, f.userID, "nope")
	assert.ErrorIs(t, err, ErrImportNotFound)
}

func TestImportCSV_Rejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ImportCSV(context.Background(), f.userID, "leads.txt", []byte("a,b\n"))
	assert.Error(t, err)
}

func TestEmailSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateUser(ctx, &model.User{ID: "u2", Email: "sam@acme.test", PasswordHash: "x", FullName: "Sam Lee"}))

	sig, err := f.svc.EmailSignature(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "Sam Lee", sig.FullName)
	assert.False(t, sig.UseCustom)

	ack, err := f.svc.SaveEmailSignature(ctx, "u2", SignatureUpdate{Position: strPtr(" Owner "), BasePitch: strPtr("We fix slow sites")})
	require.NoError(t, err)
	assert.Equal(t, "Email signature saved successfully", ack.Message)

	use := true
	_, err = f.svc.SaveEmailSignature(ctx, "u2", SignatureUpdate{CustomSignature: strPtr("Cheers,\nSam"), UseCustom: &use})
	require.NoError(t, err)

	sig, err = f.svc.EmailSignature(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "Sam Lee", sig.FullName)
	assert.Equal(t, "Owner", sig.Position)
	assert.Equal(t, "We fix slow sites", sig.BasePitch)
	assert.Equal(t, "Cheers,\nSam", sig.CustomSignature)
	assert.True(t, sig.UseCustom)
	assert.Equal(t, "Cheers,\nSam", f.svc.signature(ctx, "u2"))

	assert.Empty(t, f.svc.signature(ctx, f.userID))
}
