// Package auth issues and verifies bearer tokens for the supportflow HTTP API.
//
// Tokens are HS256 JWTs carrying a subject and a list of scopes:
//
//	cfg := auth.JWTConfig{
//	    Secret: []byte(settings.JWTSecret),
//	    Issuer: settings.JWTIssuer,
//	}
//
//	token, err := auth.IssueToken(cfg, "helpdesk-bot", auth.ScopeSubmit, auth.ScopeRead)
//
//	claims, err := auth.VerifyToken(cfg, token)
//	if err := claims.Require(auth.ScopeSubmit); err != nil {
//	    // 403
//	}
package auth
