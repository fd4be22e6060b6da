package oauth

import (
	"encoding/json"
	"strings"

	"github.com/kursadbilgin/notify-outbox/internal/credential"
)

const DefaultTokenURI = "https://oauth2.googleapis.com/token"

// ServiceAccount is the subset of a Google service-account key used for the
// JWT-bearer grant.
type ServiceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// ParseServiceAccount accepts the key as a structured object, raw JSON bytes, or
// a string holding JSON or a secret reference to it. Unparseable input yields nil.
// String fields inside the document are resolved through resolver as well.
func ParseServiceAccount(raw any, resolver *credential.Resolver) *ServiceAccount {
	if resolver == nil {
		resolver = credential.NewEnvResolver()
	}

	var data []byte
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		resolved := resolver.Resolve(v)
		if resolved == "" {
			return nil
		}
		data = []byte(resolved)
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		data = encoded
	}

	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil
	}

	sa.ProjectID = resolver.Resolve(sa.ProjectID)
	sa.ClientEmail = resolver.Resolve(sa.ClientEmail)
	sa.PrivateKey = normalizePrivateKey(resolver.Resolve(sa.PrivateKey))
	sa.TokenURI = resolver.Resolve(sa.TokenURI)
	if sa.TokenURI == "" {
		sa.TokenURI = DefaultTokenURI
	}

	return &sa
}

// Identity returns the token cache identity for the given scope.
func (sa *ServiceAccount) Identity(scope string) Identity {
	if sa == nil {
		return Identity{Scope: scope}
	}
	return Identity{
		ClientEmail: sa.ClientEmail,
		PrivateKey:  sa.PrivateKey,
		TokenURI:    sa.TokenURI,
		Scope:       scope,
	}
}

// Keys copied through environment variables often carry literal "\n" sequences.
func normalizePrivateKey(key string) string {
	if strings.Contains(key, `\n`) && !strings.Contains(key, "\n") {
		return strings.ReplaceAll(key, `\n`, "\n")
	}
	return key
}
