package statusserver

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"

	"github.com/oschwald/maxminddb-golang/v2"
)

// geoDB wraps an open MaxMind database for caller-location lookups.
type geoDB struct {
	reader *maxminddb.Reader
}

func openGeoDB(path string) (*geoDB, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &geoDB{reader: reader}, nil
}

// geoRecord is the subset of a GeoLite2 City record the status line
// uses.
type geoRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
}

// lookup returns "CC/City" for addr, or "" when nothing is known.
func (g *geoDB) lookup(addr netip.Addr) string {
	var rec geoRecord
	if err := g.reader.Lookup(addr).Decode(&rec); err != nil {
		return ""
	}
	out := rec.Country.ISOCode
	if city := rec.City.Names["en"]; city != "" {
		if out != "" {
			out += "/"
		}
		out += city
	}
	return out
}

// callerLine renders a "caller: <ip> <location>" annotation for r's
// remote address, or "" when no database is loaded or the address is
// unknown to it.
func (s *Server) callerLine(r *http.Request) string {
	if s.geo == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return ""
	}
	loc := s.geo.lookup(addr)
	if loc == "" {
		return ""
	}
	return fmt.Sprintf("caller: %s %s", host, loc)
}
