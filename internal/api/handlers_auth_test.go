package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestRegisterStartsSession(t *testing.T) {
	env := newTestApp(t)

	response := env.request(t, http.MethodPost, "/api/auth/register", registrationPayload("maria@example.com", "123.456.789-01"), "")
	defer response.Body.Close()
	if response.StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", response.StatusCode, readBody(t, response.Body))
	}

	cookie := responseCookie(response.Cookies(), authCookieName)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected auth cookie")
	}
	if !cookie.HttpOnly {
		t.Fatal("expected auth cookie to be HttpOnly")
	}
	if response.Header.Get("X-Session-Token") != cookie.Value {
		t.Fatal("expected session token header to match the cookie")
	}

	session := sessionResponse{}
	decodeJSON(t, response.Body, &session)
	if session.User.Email != "maria@example.com" || session.User.CPF != "12345678901" {
		t.Fatalf("unexpected user %+v", session.User)
	}
	if session.DaysRemaining != 30 {
		t.Fatalf("expected 30 days remaining, got %d", session.DaysRemaining)
	}
}

func TestRegisterRejectsDuplicatesAndInvalidInput(t *testing.T) {
	env := newTestApp(t)
	env.registerUser(t)

	duplicateEmail := env.request(t, http.MethodPost, "/api/auth/register", registrationPayload("MARIA@example.com", "987.654.321-00"), "")
	defer duplicateEmail.Body.Close()
	if duplicateEmail.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", duplicateEmail.StatusCode)
	}

	duplicateCPF := env.request(t, http.MethodPost, "/api/auth/register", registrationPayload("ana@example.com", "12345678901"), "")
	defer duplicateCPF.Body.Close()
	if got := readAPIError(t, duplicateCPF.Body); got != "cpf already exists" {
		t.Fatalf("expected cpf conflict, got %q", got)
	}

	badDate := registrationPayload("ana@example.com", "987.654.321-00")
	badDate["birth_date"] = "10/03/1970"
	badDateResponse := env.request(t, http.MethodPost, "/api/auth/register", badDate, "")
	defer badDateResponse.Body.Close()
	if badDateResponse.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed birth date, got %d", badDateResponse.StatusCode)
	}

	unknownExam := registrationPayload("ana@example.com", "987.654.321-00")
	unknownExam["exam_history"] = map[string]any{"xray": map[string]any{"done": true, "last_date": "2024-01-01"}}
	unknownExamResponse := env.request(t, http.MethodPost, "/api/auth/register", unknownExam, "")
	defer unknownExamResponse.Body.Close()
	if got := readAPIError(t, unknownExamResponse.Body); got != "unknown exam" {
		t.Fatalf("expected unknown exam error, got %q", got)
	}

	futureExam := registrationPayload("ana@example.com", "987.654.321-00")
	futureExam["exam_history"] = map[string]any{"papSmear": map[string]any{"done": true, "last_date": "2025-07-01"}}
	futureExamResponse := env.request(t, http.MethodPost, "/api/auth/register", futureExam, "")
	defer futureExamResponse.Body.Close()
	if futureExamResponse.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for future exam date, got %d", futureExamResponse.StatusCode)
	}
}

func TestLoginIssuesSessionAndThrottlesFailures(t *testing.T) {
	env := newTestApp(t)
	env.registerUser(t)

	success := env.request(t, http.MethodPost, "/api/auth/login", map[string]string{"email": " Maria@Example.com ", "password": testPassword}, "")
	defer success.Body.Close()
	if success.StatusCode != http.StatusOK {
		t.Fatalf("expected login status 200, got %d", success.StatusCode)
	}
	if responseCookieValue(success.Cookies(), authCookieName) == "" {
		t.Fatal("expected auth cookie after login")
	}

	for attempt := 0; attempt < loginAttemptLimit; attempt++ {
		response := env.request(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "maria@example.com", "password": "errada"}, "")
		response.Body.Close()
		if response.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", attempt+1, response.StatusCode)
		}
	}

	blocked := env.request(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "maria@example.com", "password": testPassword}, "")
	defer blocked.Body.Close()
	if blocked.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after repeated failures, got %d", blocked.StatusCode)
	}
	if got := blocked.Header.Get("Retry-After"); got != "900" {
		t.Fatalf("expected Retry-After 900, got %q", got)
	}
}

func TestForcedPasswordChangeFlow(t *testing.T) {
	env := newTestApp(t)
	env.registerUser(t)

	user, err := env.handler.Repositories().Users.FindByNormalizedEmail("maria@example.com")
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	temporaryHash, err := bcrypt.GenerateFromPassword([]byte("temporaria1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := env.handler.Repositories().Users.UpdatePassword(user.ID, string(temporaryHash), true); err != nil {
		t.Fatalf("force password change: %v", err)
	}

	login := env.request(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "maria@example.com", "password": "temporaria1"}, "")
	defer login.Body.Close()
	if login.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", login.StatusCode)
	}
	if got := readAPIError(t, login.Body); got != "password change required" {
		t.Fatalf("unexpected error %q", got)
	}
	if responseCookieValue(login.Cookies(), authCookieName) != "" {
		t.Fatal("did not expect a session before the password change")
	}
	resetToken := responseCookieValue(login.Cookies(), resetPasswordCookieName)
	if resetToken == "" {
		t.Fatal("expected reset cookie")
	}

	mismatch := env.request(t, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"token":            resetToken,
		"password":         "novaSenha1",
		"confirm_password": "outraSenha1",
	}, "")
	defer mismatch.Body.Close()
	if mismatch.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for mismatched confirmation, got %d", mismatch.StatusCode)
	}

	reset := env.request(t, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"token":            resetToken,
		"password":         "novaSenha1",
		"confirm_password": "novaSenha1",
	}, "")
	defer reset.Body.Close()
	if reset.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", reset.StatusCode, readBody(t, reset.Body))
	}
	if responseCookieValue(reset.Cookies(), authCookieName) == "" {
		t.Fatal("expected session after reset")
	}

	replay := env.request(t, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"token":            resetToken,
		"password":         "terceira1",
		"confirm_password": "terceira1",
	}, "")
	defer replay.Body.Close()
	if replay.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected reused reset token to be rejected, got %d", replay.StatusCode)
	}
}

func TestAuthRequiredAcceptsCookieOrBearer(t *testing.T) {
	env := newTestApp(t)
	token := env.registerUser(t)

	anonymous := env.request(t, http.MethodGet, "/api/exams", nil, "")
	defer anonymous.Body.Close()
	if anonymous.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", anonymous.StatusCode)
	}

	request := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	bearer, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("session request: %v", err)
	}
	defer bearer.Body.Close()
	if bearer.StatusCode != http.StatusOK {
		t.Fatalf("expected bearer session to be accepted, got %d", bearer.StatusCode)
	}
	session := sessionResponse{}
	decodeJSON(t, bearer.Body, &session)
	if session.DaysRemaining != 30 {
		t.Fatalf("expected 30 days remaining, got %d", session.DaysRemaining)
	}

	tampered := env.request(t, http.MethodGet, "/api/exams", nil, token+"x")
	defer tampered.Body.Close()
	if tampered.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected tampered token to be rejected, got %d", tampered.StatusCode)
	}
}

func TestSessionRevokedAfterPasswordChange(t *testing.T) {
	env := newTestApp(t)
	token := env.registerUser(t)

	user, err := env.handler.Repositories().Users.FindByNormalizedEmail("maria@example.com")
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	newHash, err := bcrypt.GenerateFromPassword([]byte("outraSenha1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := env.handler.Repositories().Users.UpdatePassword(user.ID, string(newHash), false); err != nil {
		t.Fatalf("update password: %v", err)
	}

	response := env.request(t, http.MethodGet, "/api/profile", nil, token)
	defer response.Body.Close()
	if response.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected stale session to be rejected, got %d", response.StatusCode)
	}
}

func TestRenewAndLogout(t *testing.T) {
	env := newTestApp(t)
	token := env.registerUser(t)

	renew := env.request(t, http.MethodPost, "/api/auth/renew", nil, token)
	defer renew.Body.Close()
	if renew.StatusCode != http.StatusOK {
		t.Fatalf("expected renew status 200, got %d", renew.StatusCode)
	}
	if responseCookieValue(renew.Cookies(), authCookieName) == "" {
		t.Fatal("expected renewed cookie")
	}

	logout := env.request(t, http.MethodPost, "/api/auth/logout", nil, token)
	defer logout.Body.Close()
	cleared := responseCookie(logout.Cookies(), authCookieName)
	if cleared == nil || cleared.Value != "" {
		t.Fatalf("expected auth cookie to be cleared, got %+v", cleared)
	}
	if !cleared.Expires.Before(testNow) {
		t.Fatalf("expected cleared cookie to be expired, got %s", cleared.Expires)
	}
}
