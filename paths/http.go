package paths

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

var (
	cache     map[string][]byte
	cacheLock sync.Mutex

	// httpClient is replaced in tests.
	httpClient = http.DefaultClient
)

// openHTTP fetches fileName and keeps the body in memory, so repeated opens
// of the same URL do not hit the network again.
func openHTTP(fileName string) (io.ReadCloser, error) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if cache == nil {
		cache = make(map[string][]byte)
	}
	if buf, ok := cache[fileName]; ok {
		glog.V(2).Infof("paths.Open(%q): returning cached body", fileName)
		return io.NopCloser(bytes.NewReader(buf)), nil
	}

	glog.V(2).Infof("paths.Open(%q): fetching", fileName)
	response, err := httpClient.Get(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "paths.Open(%q): failed to fetch", fileName)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		e := os.ErrInvalid
		if response.StatusCode == http.StatusNotFound {
			e = os.ErrNotExist
		}
		return nil, errors.Wrapf(e, "paths.Open(%q): http status %v, want 200", fileName, response.StatusCode)
	}

	buf, err := io.ReadAll(io.LimitReader(response.Body, MaxWorldFileSize+1))
	if err != nil {
		return nil, errors.Wrapf(err, "paths.Open(%q): reading body", fileName)
	}
	if int64(len(buf)) > MaxWorldFileSize {
		return nil, errors.Errorf("paths.Open(%q): body exceeds %d bytes", fileName, MaxWorldFileSize)
	}

	cache[fileName] = buf
	return io.NopCloser(bytes.NewReader(buf)), nil
}
