// internal/delivery/pool.go
package delivery

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"notification-queue/internal/common/aws"
	"notification-queue/internal/common/config"
)

var ErrNoDomainSetting = errors.New("no sender domain setting matches")

// TransportFactory builds the transport for one sender domain.
type TransportFactory func(ctx context.Context, setting config.DomainSettingConfig) (Transport, error)

type domainSetting struct {
	config.DomainSettingConfig
	match *regexp.Regexp
	name  string
}

// DomainPool resolves the transport for a sender address. Transports are
// created on first use and reused for every later send from the same domain.
type DomainPool struct {
	settings []domainSetting
	factory  TransportFactory

	mu         sync.Mutex
	transports map[string]Transport
}

func NewDomainPool(settings []config.DomainSettingConfig, factory TransportFactory) (*DomainPool, error) {
	p := &DomainPool{
		factory:    factory,
		transports: make(map[string]Transport),
	}
	for i, s := range settings {
		ds := domainSetting{DomainSettingConfig: s, name: s.Domain}
		if ds.name == "" {
			ds.name = fmt.Sprintf("setting-%d", i)
		}
		if s.FromMatchRegex != "" {
			re, err := regexp.Compile(s.FromMatchRegex)
			if err != nil {
				return nil, fmt.Errorf("domain setting %s: invalid from_match_regex: %w", ds.name, err)
			}
			ds.match = re
		}
		p.settings = append(p.settings, ds)
	}
	return p, nil
}

func (p *DomainPool) resolve(from string) (domainSetting, bool) {
	for _, s := range p.settings {
		if s.match != nil && s.match.MatchString(from) {
			return s, true
		}
	}
	for _, s := range p.settings {
		if s.IsDefault {
			return s, true
		}
	}
	return domainSetting{}, false
}

// For returns the transport serving from.
func (p *DomainPool) For(ctx context.Context, from string) (Transport, error) {
	s, ok := p.resolve(from)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDomainSetting, from)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.transports[s.name]; ok {
		return t, nil
	}
	t, err := p.factory(ctx, s.DomainSettingConfig)
	if err != nil {
		return nil, fmt.Errorf("create transport for %s: %w", s.name, err)
	}
	p.transports[s.name] = t
	return t, nil
}

// NewTransportFactory returns the factory for the configured provider.
func NewTransportFactory(cfg config.EmailConfig) (TransportFactory, error) {
	switch cfg.Provider {
	case "", "ses":
		return func(ctx context.Context, _ config.DomainSettingConfig) (Transport, error) {
			client, err := aws.NewSESClient(ctx, cfg.Region)
			if err != nil {
				return nil, err
			}
			return NewSESTransport(client), nil
		}, nil
	case "smtp":
		return func(_ context.Context, s config.DomainSettingConfig) (Transport, error) {
			if s.Host == "" {
				return nil, fmt.Errorf("smtp host is required")
			}
			return NewSMTPTransport(s.Host, s.Port, s.Username, s.Password), nil
		}, nil
	}
	return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
}
