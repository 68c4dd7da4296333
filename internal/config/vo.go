package config

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pichi-router/pichi-go/internal/adapter"
)

// validate is the shared struct validator for every VO below, with
// mapstructure tag names registered so validation errors name the
// config keys users actually wrote.
var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validateStruct runs s through the shared validator and converts any
// failure into adapter.SemanticError: the value parsed fine but is
// semantically unusable.
func validateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return adapter.Wrap(adapter.SemanticError, "configuration object failed validation", err)
	}
	return nil
}

// CredentialVO is the RFC 1929 / RFC 7617 username+password pair an
// ingress validates or an egress presents.
type CredentialVO struct {
	User string `mapstructure:"user" validate:"required"`
	Pass string `mapstructure:"pass" validate:"required"`
}

func (c CredentialVO) Validate() error { return validateStruct(c) }

// TLSOptionsVO configures the TLS stream decorator.
type TLSOptionsVO struct {
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
	CAFile   string `mapstructure:"ca_file"`
	SNI      string `mapstructure:"sni"`
	Insecure bool   `mapstructure:"insecure"`
}

// WSOptionsVO configures the WebSocket stream decorator.
type WSOptionsVO struct {
	Host string `mapstructure:"host"`
	Path string `mapstructure:"path" validate:"omitempty,startswith=/"`
}

// ReadOptions lumps every per-protocol knob a single ingress/egress VO
// may carry; which fields are meaningful depends on the owning VO's Type.
type ReadOptions struct {
	TLS *TLSOptionsVO `mapstructure:"tls"`
	WS  *WSOptionsVO  `mapstructure:"ws"`

	// Shadowsocks.
	Method   string `mapstructure:"method"`
	Password string `mapstructure:"password"`

	// Trojan.
	Passwords []string `mapstructure:"passwords"`
	Remote    string   `mapstructure:"remote"`

	// HTTP / SOCKS5.
	Credential *CredentialVO `mapstructure:"credential"`

	// Tunnel.
	Balance      string   `mapstructure:"balance"`
	Destinations []string `mapstructure:"destinations"`

	// Reject.
	RandomDelay bool `mapstructure:"random_delay"`
	DelayMillis int  `mapstructure:"delay_millis"`
}

// IngressVO is a validated ingress configuration, the unit
// internal/proxymgr's IngressManager stores and live-updates.
type IngressVO struct {
	Name    string      `mapstructure:"name" validate:"required"`
	Type    string      `mapstructure:"type" validate:"required,oneof=http socks5 shadowsocks trojan tunnel"`
	Bind    string      `mapstructure:"bind" validate:"required,hostname_port"`
	Options ReadOptions `mapstructure:"options"`
}

func (v IngressVO) Validate() error {
	if err := validateStruct(v); err != nil {
		return err
	}
	switch v.Type {
	case "trojan":
		if v.Options.TLS == nil {
			return adapter.New(adapter.SemanticError, "trojan ingress requires tls options")
		}
		if len(v.Options.Passwords) == 0 {
			return adapter.New(adapter.SemanticError, "trojan ingress requires at least one password")
		}
	case "shadowsocks":
		if v.Options.Method == "" || v.Options.Password == "" {
			return adapter.New(adapter.SemanticError, "shadowsocks ingress requires method and password")
		}
	}
	return nil
}

// EgressVO is a validated egress configuration, the unit
// internal/proxymgr's EgressManager stores and live-updates.
type EgressVO struct {
	Name    string      `mapstructure:"name" validate:"required"`
	Type    string      `mapstructure:"type" validate:"required,oneof=direct reject http socks5 shadowsocks trojan"`
	Host    string      `mapstructure:"host"`
	Port    uint16      `mapstructure:"port"`
	Options ReadOptions `mapstructure:"options"`
}

func (v EgressVO) Validate() error {
	if err := validateStruct(v); err != nil {
		return err
	}
	switch v.Type {
	case "direct", "reject":
		return nil
	}
	if v.Host == "" || v.Port == 0 {
		return adapter.New(adapter.SemanticError, v.Type+" egress requires host and port")
	}
	switch v.Type {
	case "trojan":
		if v.Options.TLS == nil {
			return adapter.New(adapter.SemanticError, "trojan egress requires tls options")
		}
		if v.Options.Password == "" {
			return adapter.New(adapter.SemanticError, "trojan egress requires a password")
		}
	case "shadowsocks":
		if v.Options.Method == "" || v.Options.Password == "" {
			return adapter.New(adapter.SemanticError, "shadowsocks egress requires method and password")
		}
	}
	return nil
}

// RuleVO is one named OR-of-matchers rule.
type RuleVO struct {
	Name        string   `mapstructure:"name" validate:"required"`
	Range       []string `mapstructure:"range"`
	IngressName []string `mapstructure:"ingress_name"`
	IngressType []string `mapstructure:"ingress_type"`
	Pattern     []string `mapstructure:"pattern"`
	Domain      []string `mapstructure:"domain"`
	Country     []string `mapstructure:"country"`
}

func (v RuleVO) Validate() error { return validateStruct(v) }

// RouteEntryVO is one priority-ordered (rule names -> egress name) tuple.
type RouteEntryVO struct {
	Rule   []string `mapstructure:"rule" validate:"required,min=1"`
	Egress string   `mapstructure:"egress" validate:"required"`
}

// RouteVO is the active route table.
type RouteVO struct {
	Default string         `mapstructure:"default" validate:"required"`
	Route   []RouteEntryVO `mapstructure:"route"`
}

func (v RouteVO) Validate() error { return validateStruct(v) }
