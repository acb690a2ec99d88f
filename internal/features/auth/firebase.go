package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// TokenVerifier verifies Google/Firebase ID tokens. *fbauth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// InitFirebase initializes the Firebase Admin SDK. A blank credentials path
// disables Firebase and returns a nil app.
func InitFirebase(ctx context.Context, credentialsPath string) (*firebase.App, error) {
	if credentialsPath == "" {
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	return app, nil
}

// GoogleUser represents the key information extracted from a verified ID token
type GoogleUser struct {
	UID           string
	Email         string
	Name          string
	EmailVerified bool
}

func googleUserFromToken(token *fbauth.Token) *GoogleUser {
	gu := &GoogleUser{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		gu.Email = NormalizeEmail(email)
	}
	if name, ok := token.Claims["name"].(string); ok {
		gu.Name = name
	}
	if verified, ok := token.Claims["email_verified"].(bool); ok {
		gu.EmailVerified = verified
	}
	return gu
}
