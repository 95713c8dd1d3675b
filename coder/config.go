package coder

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
)

// Config provides coder configuration
type Config struct {
	// Algorithms specifies allowed algorithms in the order of priority
	Algorithms []string `json:"algorithms" yaml:"algorithms"`
	// Keys specifies JWK, JWKS or list of keys for decoding,
	// and for encoding if EncodeKeys is not provided.
	// The value can be inline JSON, or file:// or env:// reference.
	Keys string `json:"keys,omitempty" yaml:"keys,omitempty"`
	// EncodeKeys specifies keys for encoding
	EncodeKeys string `json:"encode_keys,omitempty" yaml:"encode_keys,omitempty"`
	// EncodeToMany specifies to add a signature or recipient per compatible key
	EncodeToMany bool `json:"encode_to_many,omitempty" yaml:"encode_to_many,omitempty"`
	// Serialization specifies default serialization for encoding
	Serialization string `json:"serialization,omitempty" yaml:"serialization,omitempty"`
	// Serializations specifies additional serializations for decoding
	Serializations []string `json:"serializations,omitempty" yaml:"serializations,omitempty"`
}

// NestedConfig provides configuration for NestedCoder
type NestedConfig struct {
	Signature  Config `json:"signature" yaml:"signature"`
	Encryption Config `json:"encryption" yaml:"encryption"`
}

// LoadConfig returns configuration loaded from JSON or YAML file
func LoadConfig(file string) (*Config, error) {
	config := new(Config)
	if err := configloader.Unmarshal(file, config); err != nil {
		return nil, err
	}
	config.resolvePaths(filepath.Dir(file))
	return config, nil
}

// LoadNestedConfig returns configuration loaded from a file
func LoadNestedConfig(file string) (*NestedConfig, error) {
	config := new(NestedConfig)
	if err := configloader.Unmarshal(file, config); err != nil {
		return nil, err
	}
	dir := filepath.Dir(file)
	config.Signature.resolvePaths(dir)
	config.Encryption.resolvePaths(dir)
	return config, nil
}

// resolvePaths makes relative file references relative to the config folder
func (c *Config) resolvePaths(dir string) {
	c.Keys = resolvePath(dir, c.Keys)
	c.EncodeKeys = resolvePath(dir, c.EncodeKeys)
}

func resolvePath(dir, value string) string {
	if !strings.HasPrefix(value, configloader.FileSource) {
		return value
	}
	path := strings.TrimPrefix(value, configloader.FileSource)
	if filepath.IsAbs(path) {
		return value
	}
	return configloader.FileSource + filepath.Join(dir, path)
}

// NewSignatureCoderFromConfig returns SignatureCoder
func NewSignatureCoderFromConfig(cfg *Config) (*SignatureCoder, error) {
	c, err := NewSignatureCoder()
	if err != nil {
		return nil, err
	}
	if err = cfg.apply(c.settings); err != nil {
		return nil, err
	}
	return c, nil
}

// NewEncryptionCoderFromConfig returns EncryptionCoder
func NewEncryptionCoderFromConfig(cfg *Config) (*EncryptionCoder, error) {
	c, err := NewEncryptionCoder()
	if err != nil {
		return nil, err
	}
	if err = cfg.apply(c.settings); err != nil {
		return nil, err
	}
	return c, nil
}

// NewNestedCoderFromConfig returns NestedCoder
func NewNestedCoderFromConfig(cfg *NestedConfig) (*NestedCoder, error) {
	sig, err := NewSignatureCoderFromConfig(&cfg.Signature)
	if err != nil {
		return nil, errors.WithMessage(err, "signature")
	}
	enc, err := NewEncryptionCoderFromConfig(&cfg.Encryption)
	if err != nil {
		return nil, errors.WithMessage(err, "encryption")
	}
	return NewNestedCoder(sig, enc)
}

func (c *Config) apply(s *settings) error {
	if err := s.AddAlgorithms(c.Algorithms...); err != nil {
		return err
	}

	if c.Keys != "" {
		keys, err := configloader.ResolveValue(c.Keys)
		if err != nil {
			return errors.WithMessage(err, "unable to resolve keys")
		}
		if err = s.AddKeys(keys); err != nil {
			return err
		}
	}
	if c.EncodeKeys != "" {
		keys, err := configloader.ResolveValue(c.EncodeKeys)
		if err != nil {
			return errors.WithMessage(err, "unable to resolve encode keys")
		}
		if err = s.AddEncodeKeys(keys); err != nil {
			return err
		}
	}

	s.SetEncodeToMany(c.EncodeToMany)

	if c.Serialization != "" {
		ser, err := ParseSerialization(c.Serialization)
		if err != nil {
			return err
		}
		if err = s.SetSerialization(ser); err != nil {
			return err
		}
	}
	for _, name := range c.Serializations {
		ser, err := ParseSerialization(name)
		if err != nil {
			return err
		}
		if err = s.EnableSerializations(ser); err != nil {
			return err
		}
	}
	return nil
}
