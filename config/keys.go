package config

import (
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"github.com/layer-3/jwtgate/core"
)

// Keys is the RSA pair used to sign and verify tokens
type Keys struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// LoadKeys reads PEM encoded keys and checks they belong together
func LoadKeys(privatePath, publicPath string) (Keys, error) {
	privPEM, err := os.ReadFile(privatePath)
	if err != nil {
		return Keys{}, fmt.Errorf("%w: read private key: %v", core.ErrConfiguration, err)
	}
	pubPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return Keys{}, fmt.Errorf("%w: read public key: %v", core.ErrConfiguration, err)
	}
	return ParseKeys(privPEM, pubPEM)
}

// ParseKeys parses PEM encoded keys
func ParseKeys(privPEM, pubPEM []byte) (Keys, error) {
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return Keys{}, fmt.Errorf("%w: parse private key: %v", core.ErrConfiguration, err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return Keys{}, fmt.Errorf("%w: parse public key: %v", core.ErrConfiguration, err)
	}
	if !priv.PublicKey.Equal(pub) {
		return Keys{}, fmt.Errorf("%w: public key does not match private key", core.ErrConfiguration)
	}
	return Keys{Private: priv, Public: pub}, nil
}
