package providers

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/9seconds/tracemap/tracelib"
	"github.com/oschwald/maxminddb-golang"
	"github.com/spf13/afero"
)

type maxmindLookupResult struct {
	Location struct {
		Latitude  *float64 `maxminddb:"latitude"`
		Longitude *float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// MaxmindProvider reads coordinates from a local GeoLite2 City (or
// compatible) database. Database is read into memory completely.
type MaxmindProvider struct {
	dbReader     *maxminddb.Reader
	dbReaderLock sync.RWMutex
}

func (m *MaxmindProvider) Name() string {
	return NameMaxmind
}

func (m *MaxmindProvider) Shutdown() {
	m.dbReaderLock.Lock()
	defer m.dbReaderLock.Unlock()

	if m.dbReader != nil {
		m.dbReader.Close()
		m.dbReader = nil
	}
}

// Open replaces the database with a content of the file.
func (m *MaxmindProvider) Open(fs afero.Fs, path string) error {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("cannot read a database file: %w", err)
	}

	reader, err := maxminddb.FromBytes(content)
	if err != nil {
		return fmt.Errorf("cannot initialize a reader of maxminddb: %w", err)
	}

	m.dbReaderLock.Lock()
	defer m.dbReaderLock.Unlock()

	if m.dbReader != nil {
		m.dbReader.Close()
	}

	m.dbReader = reader

	return nil
}

func (m *MaxmindProvider) Lookup(ctx context.Context, ip net.IP) (tracelib.ProviderLookupResult, error) {
	m.dbReaderLock.RLock()
	defer m.dbReaderLock.RUnlock()

	rv := tracelib.ProviderLookupResult{}

	if m.dbReader == nil {
		return rv, ErrDatabaseIsNotReadyYet
	}

	record := maxmindLookupResult{}

	_, ok, err := m.dbReader.LookupNetwork(ip, &record)
	if err != nil {
		return rv, fmt.Errorf("cannot lookup this ip address: %w", err)
	}

	loc := record.Location

	if !ok || loc.Latitude == nil || loc.Longitude == nil || (*loc.Latitude == 0 && *loc.Longitude == 0) {
		return rv, tracelib.ErrLocationNotFound
	}

	rv.Latitude = *loc.Latitude
	rv.Longitude = *loc.Longitude

	return rv, nil
}

// NewMaxmind opens a database from a path parameter.
func NewMaxmind(fs afero.Fs, parameters map[string]string) (*MaxmindProvider, error) {
	path := parameters["path"]
	if path == "" {
		return nil, ErrDatabasePathIsRequired
	}

	rv := &MaxmindProvider{}

	if err := rv.Open(fs, path); err != nil {
		return nil, err
	}

	return rv, nil
}
