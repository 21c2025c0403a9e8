// Package config centralizes configuration loading for the registration
// gateway. Structs carry cleanenv tags and load from environment variables;
// the helpers cover the few places that read the environment directly.
package config
