package resources

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultTemplate is used when the caller passes no template at all.
const DefaultTemplate = "1080x1920/default.html"

const defaultTemplateSize = "1080x1920"

// Template kinds, classified from the template file's placeholders.
const (
	TemplateKindStatic = "static"
	TemplateKindImage  = "image"
	TemplateKindVideo  = "video"
)

// TemplateInfo is a resolved frame template: concrete path plus the
// resolution embedded in its parent directory name.
type TemplateInfo struct {
	Path   string
	Size   string // "WIDTHxHEIGHT"
	Width  int
	Height int
	Kind   string
}

// ResolveTemplate normalizes the historical template input spellings and
// resolves to a concrete file, customization first. Accepted forms:
//
//	""                                  -> DefaultTemplate
//	"modern.html"                       -> default size + that file
//	"1920x1080/modern.html"             -> size/file pair
//	"templates/1920x1080/modern.html"   -> legacy fully-qualified
//	"data/templates/1920x1080/m.html"   -> legacy fully-qualified (custom)
func (r *Resolver) ResolveTemplate(input string) (TemplateInfo, error) {
	if input == "" {
		input = DefaultTemplate
	}

	size, name := splitTemplateInput(input)

	width, height, err := ParseTemplateSize(size)
	if err != nil {
		return TemplateInfo{}, err
	}

	path, err := r.Path(TypeTemplates, size, name)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			nf.Resource = fmt.Sprintf("template %s/%s", size, name)
			nf.Candidates = r.ListTemplates(size)
		}
		return TemplateInfo{}, err
	}

	kind, err := classifyTemplate(path)
	if err != nil {
		return TemplateInfo{}, err
	}

	return TemplateInfo{Path: path, Size: size, Width: width, Height: height, Kind: kind}, nil
}

func splitTemplateInput(input string) (size, name string) {
	input = filepath.ToSlash(input)
	switch {
	case strings.HasPrefix(input, "templates/") || strings.HasPrefix(input, "data/templates/"):
		parts := strings.Split(input, "/")
		if len(parts) >= 3 {
			return parts[len(parts)-2], parts[len(parts)-1]
		}
		return defaultTemplateSize, parts[len(parts)-1]
	case strings.Contains(input, "/") && strings.Contains(strings.SplitN(input, "/", 2)[0], "x"):
		parts := strings.SplitN(input, "/", 2)
		return parts[0], parts[1]
	default:
		return defaultTemplateSize, input
	}
}

// ParseTemplateSize parses a "WIDTHxHEIGHT" directory name and validates
// both dimensions into a sane pixel range.
func ParseTemplateSize(size string) (width, height int, err error) {
	parts := strings.Split(size, "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid template size %q: want WIDTHxHEIGHT, e.g. 1080x1920", size)
	}
	width, werr := strconv.Atoi(parts[0])
	height, herr := strconv.Atoi(parts[1])
	if werr != nil || herr != nil {
		return 0, 0, fmt.Errorf("invalid template size %q: want WIDTHxHEIGHT, e.g. 1080x1920", size)
	}
	if width < 100 || height < 100 || width > 10000 || height > 10000 {
		return 0, 0, fmt.Errorf("template size %dx%d out of range (100-10000 per dimension)", width, height)
	}
	return width, height, nil
}

// classifyTemplate inspects the template file's placeholders: a template
// that binds no generated media is static.
func classifyTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	content := string(data)
	switch {
	case strings.Contains(content, "{{video}}"):
		return TemplateKindVideo, nil
	case strings.Contains(content, "{{image}}"):
		return TemplateKindImage, nil
	default:
		return TemplateKindStatic, nil
	}
}

// ListSizes lists available template size directories across both roots,
// filtered to valid WIDTHxHEIGHT names.
func (r *Resolver) ListSizes() []string {
	var sizes []string
	for _, dir := range r.ListDirs(TypeTemplates) {
		if _, _, err := ParseTemplateSize(dir); err == nil {
			sizes = append(sizes, dir)
		}
	}
	return sizes
}

// ListTemplates lists template files for one size, merged across roots.
func (r *Resolver) ListTemplates(size string) []string {
	var out []string
	for _, f := range r.ListFiles(TypeTemplates, size) {
		if strings.HasSuffix(f, ".html") {
			out = append(out, f)
		}
	}
	return out
}

// Orientation classifies a size as portrait, landscape, or square.
func Orientation(width, height int) string {
	switch {
	case height > width:
		return "portrait"
	case width > height:
		return "landscape"
	default:
		return "square"
	}
}
