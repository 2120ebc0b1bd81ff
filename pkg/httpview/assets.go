package httpview

import (
	"embed"
	"io/fs"
)

//go:embed assets/*.js
var embeddedAssets embed.FS

// AssetsFS exposes the browser scripts used by the live reload hub so they
// can be served as files instead of inlined.
//
// Typical mount:
//
//	mux.Handle("/_tagview/",
//	  http.StripPrefix("/_tagview/",
//	    http.FileServerFS(httpview.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	sub, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		return embeddedAssets
	}
	return sub
}

func liveReloadScript() string {
	data, err := fs.ReadFile(embeddedAssets, "assets/livereload.js")
	if err != nil {
		return ""
	}
	return string(data)
}
