package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/toolgen/config"
)

// metadataFile is the per-server and per-category file of a metadata tree.
const metadataFile = "metadata.json"

// fileCatalog is the on-disk shape of a catalog file.
type fileCatalog struct {
	Servers []fileServer `yaml:"servers" json:"servers" toml:"servers"`
}

type fileServer struct {
	Name        string         `yaml:"name" json:"name" toml:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty" toml:"description,omitempty"`
	Categories  []fileCategory `yaml:"categories" json:"categories" toml:"categories"`
}

type fileCategory struct {
	Name        string     `yaml:"name" json:"name" toml:"name"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty" toml:"description,omitempty"`
	Keywords    []string   `yaml:"keywords,omitempty" json:"keywords,omitempty" toml:"keywords,omitempty"`
	Tools       []fileTool `yaml:"tools" json:"tools" toml:"tools"`
}

type fileTool struct {
	Name        string         `yaml:"name" json:"name" toml:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty" toml:"description,omitempty"`
	InputSchema map[string]any `yaml:"input_schema,omitempty" json:"input_schema,omitempty" toml:"input_schema,omitempty"`
	Keywords    []string       `yaml:"keywords,omitempty" json:"keywords,omitempty" toml:"keywords,omitempty"`
}

// Load reads a catalog from path. A directory is read as a metadata tree;
// a file is decoded by extension like config.Load.
func Load(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog: %w", config.ErrConfiguration, err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog: %w", config.ErrConfiguration, err)
	}
	cat, err := Parse(data, config.Format(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes a catalog document in the given format.
func Parse(data []byte, format string) (*Catalog, error) {
	var fc fileCatalog
	if err := config.Decode(data, format, &fc); err != nil {
		return nil, err
	}
	servers := make([]Server, 0, len(fc.Servers))
	for _, fs := range fc.Servers {
		s := Server{Name: fs.Name, Description: fs.Description}
		for _, fcat := range fs.Categories {
			c := Category{Name: fcat.Name, Description: fcat.Description, Keywords: fcat.Keywords}
			for _, ft := range fcat.Tools {
				c.Tools = append(c.Tools, Tool{
					Name:        ft.Name,
					Description: ft.Description,
					InputSchema: ft.InputSchema,
					Keywords:    ft.Keywords,
				})
			}
			s.Categories = append(s.Categories, c)
		}
		servers = append(servers, s)
	}
	return New(servers...)
}

// Marshal encodes the catalog in the given format ("yaml", "json" or
// "toml") in the shape Parse reads.
func (c *Catalog) Marshal(format string) ([]byte, error) {
	fc := fileCatalog{Servers: make([]fileServer, 0, len(c.servers))}
	for _, s := range c.servers {
		fs := fileServer{Name: s.Name, Description: s.Description}
		for _, cat := range s.Categories {
			fcat := fileCategory{Name: cat.Name, Description: cat.Description, Keywords: cat.Keywords}
			for _, t := range cat.Tools {
				fcat.Tools = append(fcat.Tools, fileTool{
					Name:        t.Name,
					Description: t.Description,
					InputSchema: t.InputSchema,
					Keywords:    t.Keywords,
				})
			}
			fs.Categories = append(fs.Categories, fcat)
		}
		fc.Servers = append(fc.Servers, fs)
	}

	switch format {
	case "json":
		return json.MarshalIndent(fc, "", "  ")
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(fc); err != nil {
			return nil, fmt.Errorf("encode toml: %w", err)
		}
		return buf.Bytes(), nil
	case "yaml", "":
		return yaml.Marshal(fc)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", config.ErrConfiguration, format)
	}
}

// serverMetadata is <dir>/<server>/metadata.json. Categories is decoded
// separately to keep the file's key order.
type serverMetadata struct {
	ServerName  string `json:"server_name"`
	Description string `json:"description"`
}

type categorySummary struct {
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	ToolCount   int      `json:"tool_count"`
}

// categoryMetadata is <dir>/<server>/<category>/metadata.json.
type categoryMetadata struct {
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Tools       []struct {
		Name        string         `json:"name"`
		FullName    string         `json:"full_name"`
		Description string         `json:"description"`
		InputSchema map[string]any `json:"input_schema"`
		Keywords    []string       `json:"keywords"`
	} `json:"tools"`
}

// LoadDir reads a scaffold metadata tree. Server directories are visited
// in name order; hidden directories and directories without a
// metadata.json are skipped. Categories follow the order of the server
// metadata's categories object.
func LoadDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog: %w", config.ErrConfiguration, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var servers []Server
	for _, name := range names {
		path := filepath.Join(dir, name, metadataFile)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: catalog: %w", config.ErrConfiguration, err)
		}
		srv, err := loadServerDir(filepath.Join(dir, name), name, data)
		if err != nil {
			return nil, err
		}
		servers = append(servers, srv)
	}
	return New(servers...)
}

func loadServerDir(dir, name string, data []byte) (Server, error) {
	var meta serverMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Server{}, fmt.Errorf("%w: %s: %w", config.ErrConfiguration, filepath.Join(dir, metadataFile), err)
	}
	order, summaries, err := decodeCategoryOrder(data)
	if err != nil {
		return Server{}, fmt.Errorf("%w: %s: %w", config.ErrConfiguration, filepath.Join(dir, metadataFile), err)
	}

	srv := Server{Name: name, Description: meta.Description}
	for _, catName := range order {
		path := filepath.Join(dir, catName, metadataFile)
		raw, err := os.ReadFile(path)
		if err != nil {
			return Server{}, fmt.Errorf("%w: catalog: %w", config.ErrConfiguration, err)
		}
		var cm categoryMetadata
		if err := json.Unmarshal(raw, &cm); err != nil {
			return Server{}, fmt.Errorf("%w: %s: %w", config.ErrConfiguration, path, err)
		}

		sum := summaries[catName]
		cat := Category{Name: catName, Description: cm.Description, Keywords: cm.Keywords}
		if cat.Description == "" {
			cat.Description = sum.Description
		}
		if cat.Keywords == nil {
			cat.Keywords = sum.Keywords
		}
		for _, t := range cm.Tools {
			cat.Tools = append(cat.Tools, Tool{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: t.InputSchema,
				Keywords:    t.Keywords,
			})
		}
		srv.Categories = append(srv.Categories, cat)
	}
	return srv, nil
}

// decodeCategoryOrder walks the "categories" object of a server metadata
// document and returns its keys in file order with their summaries.
func decodeCategoryOrder(data []byte) ([]string, map[string]categorySummary, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, nil, err
	}
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		if key != "categories" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, nil, err
			}
			continue
		}

		if err := expectDelim(dec, '{'); err != nil {
			return nil, nil, fmt.Errorf("categories: %w", err)
		}
		var order []string
		summaries := make(map[string]categorySummary)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, nil, err
			}
			name, _ := tok.(string)
			var sum categorySummary
			if err := dec.Decode(&sum); err != nil {
				return nil, nil, fmt.Errorf("category %q: %w", name, err)
			}
			order = append(order, name)
			summaries[name] = sum
		}
		return order, summaries, nil
	}
	return nil, nil, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return fmt.Errorf("expected %q, got end of input", want)
	}
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
