// Package classify decides how a fetched address is processed, based only
// on the address itself.
//
// An address whose path has no extension, or a known page extension, is
// HTML. Office and PDF extensions map to their binary class. Everything
// else is a generic binary: unknown extensions are never guessed to be
// pages.
package classify

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/nao1215/gocrawler/internal/model"
)

// DefaultContentType is reported when no media type can be derived.
const DefaultContentType = "application/octet-stream"

// htmlExtensions are path extensions served as pages.
var htmlExtensions = map[string]struct{}{
	".html":  {},
	".htm":   {},
	".xhtml": {},
	".php":   {},
	".asp":   {},
	".aspx":  {},
	".jsp":   {},
	".cfm":   {},
	".shtml": {},
}

// binaryExtensions map document extensions to their class.
var binaryExtensions = map[string]model.ContentClass{
	".pdf":  model.ClassPDF,
	".doc":  model.ClassDOC,
	".docx": model.ClassDOCX,
	".ppt":  model.ClassPPT,
	".pptx": model.ClassPPTX,
}

// imageTypes covers image formats that mime.TypeByExtension does not know
// on every platform.
var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".ico":  "image/x-icon",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".avif": "image/avif",
}

// Classifier is a stateless address classifier. It exists so that the
// crawler can depend on an interface.
type Classifier struct{}

// New returns a Classifier.
func New() Classifier {
	return Classifier{}
}

// Classify is the method form of the package-level Classify.
func (Classifier) Classify(address string) model.ContentClass {
	return Classify(address)
}

// ContentType is the method form of the package-level ContentType.
func (Classifier) ContentType(address string) string {
	return ContentType(address)
}

// Classify returns the content class of address.
func Classify(address string) model.ContentClass {
	ext := extension(address)
	if ext == "" {
		return model.ClassHTML
	}
	if _, ok := htmlExtensions[ext]; ok {
		return model.ClassHTML
	}
	if class, ok := binaryExtensions[ext]; ok {
		return class
	}
	return model.ClassBinary
}

// ContentType returns the media type of the resource at address. data: URIs
// report the media type they declare.
func ContentType(address string) string {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(strings.ToLower(address), "data:") {
		return dataMediaType(address)
	}

	ext := extension(address)
	if ext == "" {
		return DefaultContentType
	}
	if t, ok := imageTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		mediaType, _, err := mime.ParseMediaType(t)
		if err == nil {
			return mediaType
		}
	}
	return DefaultContentType
}

// extension returns the lowercased extension of the address path, ignoring
// query and fragment.
func extension(address string) string {
	p := address
	if u, err := url.Parse(strings.TrimSpace(address)); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.ToLower(path.Ext(p))
}

// dataMediaType extracts the media type of a data: URI, defaulting to
// text/plain as RFC 2397 does.
func dataMediaType(address string) string {
	header := address[len("data:"):]
	if i := strings.IndexByte(header, ','); i >= 0 {
		header = header[:i]
	}
	header = strings.TrimSuffix(header, ";base64")
	if i := strings.IndexByte(header, ';'); i >= 0 {
		header = header[:i]
	}
	header = strings.ToLower(strings.TrimSpace(header))
	if header == "" {
		return "text/plain"
	}
	return header
}
