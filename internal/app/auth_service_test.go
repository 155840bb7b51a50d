package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"photoshare/internal/model"
	"photoshare/internal/pkg/token"
	"photoshare/internal/platform/rabbitmq"
	"photoshare/internal/repository"
)

type authFixture struct {
	svc     *AuthService
	users   *fakeUserStore
	tokens  *token.Service
	revoked *fakeRevoker
	emails  *fakePublisher
	storage *fakeStorage
}

func newAuthFixture(requireConfirmed bool) *authFixture {
	f := &authFixture{
		users:   newFakeUserStore(),
		tokens:  token.NewService("test-secret"),
		revoked: newFakeRevoker(),
		emails:  &fakePublisher{},
		storage: newFakeStorage(),
	}
	f.svc = NewAuthService(
		f.users, f.tokens, f.revoked, f.emails, f.storage,
		time.Minute, time.Hour, time.Minute,
		requireConfirmed,
	)
	return f
}

func (f *authFixture) register(t *testing.T, email, password string) *model.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "tester",
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return user
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(false)

	user := f.register(t, "Alice@Example.COM", "secret1")
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, expected normalized lowercase", user.Email)
	}
	if user.Confirmed {
		t.Error("new account should start unconfirmed")
	}
	if user.Role != model.RoleUser {
		t.Errorf("role = %q, expected %q", user.Role, model.RoleUser)
	}
	if user.PasswordHash == "secret1" {
		t.Error("password stored in plaintext")
	}

	if len(f.emails.jobs) != 1 {
		t.Fatalf("queued %d mails, expected 1 confirmation", len(f.emails.jobs))
	}
	job := f.emails.jobs[0]
	if job.Kind != rabbitmq.EmailKindConfirm {
		t.Errorf("mail kind = %q, expected %q", job.Kind, rabbitmq.EmailKindConfirm)
	}
	if _, err := f.tokens.Verify(job.Token, token.PurposeEmailConfirm); err != nil {
		t.Errorf("queued confirmation token does not verify: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(false)
	f.register(t, "alice@example.com", "secret1")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "other",
		Email:    "ALICE@example.com",
		Password: "secret2",
	})
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("register error = %v, expected ErrEmailExists", err)
	}
}

func TestRegisterInvalidInput(t *testing.T) {
	f := newAuthFixture(false)

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"empty_email", RegisterInput{Username: "a", Email: "", Password: "secret1"}},
		{"empty_username", RegisterInput{Username: "", Email: "a@b.com", Password: "secret1"}},
		{"short_password", RegisterInput{Username: "a", Email: "a@b.com", Password: "12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Register(context.Background(), tt.input); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("register error = %v, expected ErrInvalidInput", err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(false)
	registered := f.register(t, "alice@example.com", "secret1")

	user, pair, err := f.svc.Login(context.Background(), "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("user id = %d, expected %d", user.ID, registered.ID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens in the pair")
	}

	if _, err := f.tokens.Verify(pair.AccessToken, token.PurposeAccess); err != nil {
		t.Errorf("access token does not verify: %v", err)
	}
	if _, err := f.tokens.Verify(pair.RefreshToken, token.PurposeRefresh); err != nil {
		t.Errorf("refresh token does not verify: %v", err)
	}

	stored, _ := f.users.GetByID(user.ID)
	if stored.RefreshTokenHash == "" {
		t.Error("refresh token hash not persisted on login")
	}
	if stored.RefreshTokenHash == pair.RefreshToken {
		t.Error("refresh token persisted raw instead of hashed")
	}
}

func TestLoginBadCredentials(t *testing.T) {
	f := newAuthFixture(false)
	f.register(t, "alice@example.com", "secret1")

	if _, _, err := f.svc.Login(context.Background(), "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("wrong password: error = %v, expected ErrInvalidCredential", err)
	}
	// Unknown email fails the same way, never revealing which part was wrong.
	if _, _, err := f.svc.Login(context.Background(), "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("unknown email: error = %v, expected ErrInvalidCredential", err)
	}
}

func TestLoginRequiresConfirmation(t *testing.T) {
	f := newAuthFixture(true)
	user := f.register(t, "alice@example.com", "secret1")

	if _, _, err := f.svc.Login(context.Background(), "alice@example.com", "secret1"); !errors.Is(err, ErrEmailNotConfirmed) {
		t.Fatalf("login error = %v, expected ErrEmailNotConfirmed", err)
	}

	if err := f.users.Confirm(user.ID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if _, _, err := f.svc.Login(context.Background(), "alice@example.com", "secret1"); err != nil {
		t.Errorf("login after confirmation failed: %v", err)
	}
}

func TestRefreshRotates(t *testing.T) {
	f := newAuthFixture(false)
	f.register(t, "alice@example.com", "secret1")

	_, pair, err := f.svc.Login(context.Background(), "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	next, err := f.svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Error("refresh returned the same refresh token")
	}

	// The rotated-in token works.
	if _, err := f.svc.Refresh(context.Background(), next.RefreshToken); err != nil {
		t.Errorf("second refresh failed: %v", err)
	}
}

func TestRefreshReuseInvalidatesSession(t *testing.T) {
	f := newAuthFixture(false)
	user := f.register(t, "alice@example.com", "secret1")

	_, pair, err := f.svc.Login(context.Background(), "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := f.svc.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	// Replaying the rotated-out token kills the whole session.
	if _, err := f.svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrStaleToken) {
		t.Fatalf("replay error = %v, expected ErrStaleToken", err)
	}
	stored, _ := f.users.GetByID(user.ID)
	if stored.RefreshTokenHash != "" {
		t.Error("session not cleared after refresh token reuse")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newAuthFixture(false)
	f.register(t, "alice@example.com", "secret1")

	_, pair, err := f.svc.Login(context.Background(), "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := f.svc.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, token.ErrPurposeMismatch) {
		t.Errorf("refresh error = %v, expected ErrPurposeMismatch", err)
	}
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(false)
	user := f.register(t, "alice@example.com", "secret1")

	_, pair, err := f.svc.Login(context.Background(), "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	claims, err := f.tokens.Verify(pair.AccessToken, token.PurposeAccess)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if err := f.svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	revoked, _ := f.revoked.IsRevoked(context.Background(), claims.ID)
	if !revoked {
		t.Error("access token jti not revoked on logout")
	}
	stored, _ := f.users.GetByID(user.ID)
	if stored.RefreshTokenHash != "" {
		t.Error("refresh token not cleared on logout")
	}
}

func TestConfirmEmail(t *testing.T) {
	f := newAuthFixture(false)
	f.register(t, "alice@example.com", "secret1")

	actionToken := f.emails.jobs[0].Token

	user, err := f.svc.ConfirmEmail(actionToken)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if !user.Confirmed {
		t.Error("user not confirmed after ConfirmEmail")
	}

	// The same token a second time is rejected, not silently accepted.
	if _, err := f.svc.ConfirmEmail(actionToken); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Errorf("second confirm error = %v, expected ErrAlreadyConfirmed", err)
	}
}

func TestConfirmEmailWrongPurpose(t *testing.T) {
	f := newAuthFixture(false)
	f.register(t, "alice@example.com", "secret1")

	_, pair, err := f.svc.Login(context.Background(), "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := f.svc.ConfirmEmail(pair.AccessToken); !errors.Is(err, token.ErrPurposeMismatch) {
		t.Errorf("confirm error = %v, expected ErrPurposeMismatch", err)
	}
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	f := newAuthFixture(false)

	// Unknown addresses succeed silently so the endpoint cannot be used to
	// probe which emails have accounts.
	if err := f.svc.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("reset request failed: %v", err)
	}
	if len(f.emails.jobs) != 0 {
		t.Errorf("queued %d mails for unknown address, expected 0", len(f.emails.jobs))
	}
}

func TestResetPassword(t *testing.T) {
	f := newAuthFixture(false)
	user := f.register(t, "alice@example.com", "secret1")

	if _, _, err := f.svc.Login(context.Background(), "alice@example.com", "secret1"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := f.svc.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("reset request failed: %v", err)
	}

	var resetToken string
	for _, job := range f.emails.jobs {
		if job.Kind == rabbitmq.EmailKindPasswordReset {
			resetToken = job.Token
		}
	}
	if resetToken == "" {
		t.Fatal("no password reset mail queued")
	}

	if _, err := f.svc.ResetPassword(context.Background(), resetToken, "newsecret"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	if _, _, err := f.svc.Login(context.Background(), "alice@example.com", "secret1"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("old password still works after reset")
	}
	if _, _, err := f.svc.Login(context.Background(), "alice@example.com", "newsecret"); err != nil {
		t.Errorf("new password rejected after reset: %v", err)
	}
	stored, _ := f.users.GetByID(user.ID)
	if stored.RefreshTokenHash != "" {
		t.Error("refresh token survived the password reset")
	}
}

func TestResetPasswordTooShort(t *testing.T) {
	f := newAuthFixture(false)
	f.register(t, "alice@example.com", "secret1")
	if err := f.svc.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("reset request failed: %v", err)
	}
	resetToken := f.emails.jobs[len(f.emails.jobs)-1].Token

	if _, err := f.svc.ResetPassword(context.Background(), resetToken, "123"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("reset error = %v, expected ErrInvalidInput", err)
	}
}

func TestResetPasswordTokenSingleUse(t *testing.T) {
	f := newAuthFixture(false)
	f.register(t, "alice@example.com", "secret1")
	if err := f.svc.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("reset request failed: %v", err)
	}
	resetToken := f.emails.jobs[len(f.emails.jobs)-1].Token

	if err := f.svc.CheckPasswordReset(context.Background(), resetToken); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}
	if _, err := f.svc.ResetPassword(context.Background(), resetToken, "firstnew"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	// The token is spent: a second use must not change the password again.
	if _, err := f.svc.ResetPassword(context.Background(), resetToken, "secondnew"); !errors.Is(err, token.ErrInvalidToken) {
		t.Fatalf("replayed token error = %v, expected ErrInvalidToken", err)
	}
	if err := f.svc.CheckPasswordReset(context.Background(), resetToken); !errors.Is(err, token.ErrInvalidToken) {
		t.Errorf("spent token check error = %v, expected ErrInvalidToken", err)
	}

	if _, _, err := f.svc.Login(context.Background(), "alice@example.com", "secondnew"); !errors.Is(err, ErrInvalidCredential) {
		t.Error("replayed reset still changed the password")
	}
	if _, _, err := f.svc.Login(context.Background(), "alice@example.com", "firstnew"); err != nil {
		t.Errorf("password from the legitimate reset rejected: %v", err)
	}
}

func TestRegisterDuplicateAtInsert(t *testing.T) {
	f := newAuthFixture(false)

	// Two concurrent registrations both pass the lookup; the loser hits the
	// unique index instead. That surfaces as the same conflict error.
	f.users.createErr = repository.ErrDuplicateEmail
	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "racer",
		Email:    "alice@example.com",
		Password: "secret1",
	})
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("register error = %v, expected ErrEmailExists", err)
	}
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

func TestUpdateAvatar(t *testing.T) {
	f := newAuthFixture(false)
	user := f.register(t, "alice@example.com", "secret1")

	updated, err := f.svc.UpdateAvatar(context.Background(), user.ID, bytes.NewReader(pngHeader), int64(len(pngHeader)), "me.png")
	if err != nil {
		t.Fatalf("avatar update failed: %v", err)
	}
	if updated.Avatar == "" {
		t.Fatal("avatar path not set")
	}
	if _, ok := f.storage.objects[updated.Avatar]; !ok {
		t.Errorf("avatar object %q not written", updated.Avatar)
	}

	first := updated.Avatar
	again, err := f.svc.UpdateAvatar(context.Background(), user.ID, bytes.NewReader(pngHeader), int64(len(pngHeader)), "me2.png")
	if err != nil {
		t.Fatalf("second avatar update failed: %v", err)
	}
	if again.Avatar == first {
		t.Error("avatar path not rotated on replacement")
	}
	if _, ok := f.storage.objects[first]; ok {
		t.Error("previous avatar object not removed")
	}
}

func TestUpdateAvatarRejectsNonImage(t *testing.T) {
	f := newAuthFixture(false)
	user := f.register(t, "alice@example.com", "secret1")

	_, err := f.svc.UpdateAvatar(context.Background(), user.ID, bytes.NewReader([]byte("plain text")), 10, "note.txt")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("avatar error = %v, expected ErrUnsupportedType", err)
	}
	if len(f.storage.objects) != 0 {
		t.Error("rejected avatar still reached storage")
	}
}

func TestUpdateAvatarTooLarge(t *testing.T) {
	f := newAuthFixture(false)
	user := f.register(t, "alice@example.com", "secret1")

	_, err := f.svc.UpdateAvatar(context.Background(), user.ID, bytes.NewReader(pngHeader), maxAvatarBytes+1, "big.png")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("avatar error = %v, expected ErrFileTooLarge", err)
	}
}
