package ports

import "github.com/layer-3/jwtgate/core"

// Tokenizer converts between identities and signed tokens
type Tokenizer interface {
	Issue(subject string, scope any) (string, error)
	Verify(token string) (*core.Identity, error)
}
