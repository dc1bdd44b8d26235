package tracelib

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// StoreHeader is the first line of the cache file. It is always
// skipped on reading.
const StoreHeader = "ip,latitude,longitude"

const storeFileMode os.FileMode = 0644

type fileStore struct {
	fs   afero.Fs
	path string
}

// Load reads a whole file or fails. A missing file is not an error:
// it is just an empty cache.
func (f fileStore) Load() (map[string]Coordinate, error) {
	fp, err := f.fs.Open(f.path)

	switch {
	case errors.Is(err, os.ErrNotExist):
		return map[string]Coordinate{}, nil
	case err != nil:
		return nil, fmt.Errorf("cannot open %s: %w", f.path, err)
	}

	defer fp.Close()

	reader := csv.NewReader(bufio.NewReader(fp))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	rv := map[string]Coordinate{}

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return rv, nil
		}

		return nil, fmt.Errorf("cannot read a header: %w", err)
	}

	for line := 2; ; line++ {
		record, err := reader.Read()

		switch {
		case errors.Is(err, io.EOF):
			return rv, nil
		case err != nil:
			return nil, fmt.Errorf("cannot read a record: %w", err)
		}

		addr, coord, err := f.parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("incorrect record at line %d: %w", line, err)
		}

		rv[addr] = coord
	}
}

func (f fileStore) parseRecord(record []string) (string, Coordinate, error) {
	coord := Coordinate{}

	if len(record) != 3 {
		return "", coord, fmt.Errorf("expected 3 fields, got %d", len(record))
	}

	ip := net.ParseIP(strings.TrimSpace(record[0]))
	if ip == nil {
		return "", coord, fmt.Errorf("incorrect ip address %q", record[0])
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return "", coord, fmt.Errorf("incorrect latitude: %w", err)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil {
		return "", coord, fmt.Errorf("incorrect longitude: %w", err)
	}

	coord.Latitude = lat
	coord.Longitude = lon

	return ip.String(), coord, nil
}

// Save writes into a temporary file and renames it into the target
// one so a reader never sees a half-written cache.
func (f fileStore) Save(locations map[string]Coordinate) (err error) {
	dir, base := filepath.Split(f.path)
	if dir == "" {
		dir = "."
	}

	fp, err := afero.TempFile(f.fs, dir, "."+base+".")
	if err != nil {
		return fmt.Errorf("cannot create a temporary file: %w", err)
	}

	tmpName := fp.Name()

	defer func() {
		if err != nil {
			f.fs.Remove(tmpName) // nolint: errcheck
		}
	}()

	if err := f.write(fp, locations); err != nil {
		fp.Close()

		return fmt.Errorf("cannot write a cache: %w", err)
	}

	if err := fp.Close(); err != nil {
		return fmt.Errorf("cannot close a temporary file: %w", err)
	}

	// temporary files are created with 0600
	if err := f.fs.Chmod(tmpName, storeFileMode); err != nil {
		return fmt.Errorf("cannot change mode of %s: %w", tmpName, err)
	}

	if err := f.fs.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("cannot rename %s to %s: %w", tmpName, f.path, err)
	}

	return nil
}

func (f fileStore) write(w io.Writer, locations map[string]Coordinate) error {
	addrs := make([]string, 0, len(locations))

	for k := range locations {
		addrs = append(addrs, k)
	}

	sort.Strings(addrs)

	buf := bufio.NewWriter(w)

	if _, err := buf.WriteString(StoreHeader + "\n"); err != nil {
		return err
	}

	for _, addr := range addrs {
		coord := locations[addr]

		_, err := fmt.Fprintf(buf, "%s, %s, %s\n",
			addr,
			strconv.FormatFloat(coord.Latitude, 'f', -1, 64),
			strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
		if err != nil {
			return err
		}
	}

	return buf.Flush()
}

// NewFileStore returns a Store which keeps coordinates in a CSV file:
//
//     ip,latitude,longitude
//     8.8.8.8, 37.751, -97.822
//
// Addresses with commas are not supported.
func NewFileStore(fs afero.Fs, path string) Store {
	return fileStore{
		fs:   fs,
		path: path,
	}
}
