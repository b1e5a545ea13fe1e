// Command wldweb serves the world files of a directory over HTTP.
//
// Routes:
//
//	GET  /worlds                      files available, with sizes
//	GET  /worlds/{name}               summary of name.wld (or .wld.zst, .wld.gz)
//	GET  /worlds/{name}/tiles/{x}/{y} one tile
//	POST /decode                      summary of the uploaded file
package main

import (
	"flag"
	"net/http"
	"os"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/golang/glog"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	_ "golang.org/x/net/trace"

	"badc0de.net/pkg/go-terramap/paths"
	"badc0de.net/pkg/go-terramap/web"
	"badc0de.net/pkg/go-terramap/wld"
)

var (
	listenAddress      = flag.String("listen_address", ":8080", "http listen address for wldweb")
	debugListenAddress = flag.String("debug_listen_address", "", "where /debug/requests is served; empty disables it")
	allowedOrigin      = flag.String("allowed_origin", "*", "origin allowed to make cross-origin requests")
	maxDimension       = flag.Int("max_dimension", wld.DefaultMaxDimension, "largest accepted world width or height")
	requireSignature   = flag.Bool("require_signature", false, "reject files without the world file signature")
)

func newRouter(dir string, opts wld.Options) http.Handler {
	r := mux.NewRouter()
	web.NewHandler(dir, opts).RegisterRoutes(r)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{*allowedOrigin}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.ExposedHeaders([]string{"ETag"}),
	)
	return handlers.CombinedLoggingHandler(os.Stderr, cors(r))
}

func main() {
	flagutil.Parse()
	flag.Set("logtostderr", "true")

	if *debugListenAddress != "" {
		// golang.org/x/net/trace registers itself on the default mux.
		go func() {
			glog.Infof("debug server on %s", *debugListenAddress)
			glog.Error(http.ListenAndServe(*debugListenAddress, nil))
		}()
	}

	dir := paths.WorldDir()
	opts := wld.Options{
		MaxDimension:     *maxDimension,
		RequireSignature: *requireSignature,
		Tracer:           wld.GlogTracer{Level: 3},
	}

	glog.Infof("serving worlds from %s on %s", dir, *listenAddress)
	glog.Fatal(http.ListenAndServe(*listenAddress, newRouter(dir, opts)))
}
