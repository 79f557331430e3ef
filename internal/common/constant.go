package common

// SessionCookieName is the cookie that carries the session token for browser
// clients. API clients send the same token as "Authorization: Bearer <token>".
const SessionCookieName = "comicvault_session"

// VerificationTokenBytes is the entropy of an email verification token.
const VerificationTokenBytes = 32
