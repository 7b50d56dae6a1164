package service

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"

	"github.com/michel-pi/shortly/internal/util"
)

const unknownCountry = "n/a"

// CountryResolver maps a client address to a display country name for
// engagement analytics.
type CountryResolver interface {
	LookupCountry(ip net.IP) string
}

// GeoIPResolver resolves countries from a MaxMind GeoLite2/GeoIP2 country
// database file.
type GeoIPResolver struct {
	reader *geoip2.Reader
}

func NewGeoIPResolver(path string) (*GeoIPResolver, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &GeoIPResolver{reader: reader}, nil
}

func (r *GeoIPResolver) LookupCountry(ip net.IP) string {
	if ip == nil {
		return unknownCountry
	}

	record, err := r.reader.Country(ip)
	if err != nil {
		return unknownCountry
	}

	for _, name := range []string{
		record.Country.Names["en"],
		record.RegisteredCountry.Names["en"],
		record.RepresentedCountry.Names["en"],
	} {
		if name != "" {
			return name
		}
	}
	return unknownCountry
}

func (r *GeoIPResolver) Close() error {
	return r.reader.Close()
}

// NoopCountryResolver is used when no database is configured.
type NoopCountryResolver struct{}

func (NoopCountryResolver) LookupCountry(net.IP) string { return unknownCountry }

// NewCountryResolver builds the configured resolver. The cleanup func is
// always safe to call.
func NewCountryResolver(cfg *util.GeoConfig, log *zap.SugaredLogger) (CountryResolver, func(), error) {
	if cfg.DatabasePath == "" {
		log.Info("geoip database not configured, country lookup disabled")
		return NoopCountryResolver{}, func() {}, nil
	}

	resolver, err := NewGeoIPResolver(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := resolver.Close(); err != nil {
			log.Errorf("Failed to close geoip database: %v", err)
		}
	}
	return resolver, cleanup, nil
}
