package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/jsonc"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

var fastJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ExtensionAPI is one browser extension management source.
type ExtensionAPI interface {
	Name() string
	Present() bool
}

// ExtensionLister is implemented by management sources able to enumerate
// installed extensions.
type ExtensionLister interface {
	ListExtensions(ctx context.Context) ([]string, error)
}

// ExtensionProbe counts extensions through the first present API. The APIs
// are mutually exclusive: later ones are not consulted once one is present.
type ExtensionProbe struct {
	APIs []ExtensionAPI
}

// Probe returns the count, or "N/A" when no API is present or the present
// API cannot enumerate.
func (p *ExtensionProbe) Probe(ctx context.Context) model.ExtensionSample {
	na := model.ExtensionSample{Count: model.UnavailableResult("")}

	return guard("extensions", na, func() (model.ExtensionSample, error) {
		for _, api := range p.APIs {
			if api == nil || !api.Present() {
				continue
			}
			lister, ok := api.(ExtensionLister)
			if !ok {
				return model.ExtensionSample{}, errMissing(api.Name() + " enumeration")
			}
			names, err := lister.ListExtensions(ctx)
			if err != nil {
				return model.ExtensionSample{}, fmt.Errorf("%s: %w", api.Name(), err)
			}
			return model.ExtensionSample{
				Count:  model.NumberResult(float64(len(names)), ""),
				Source: api.Name(),
				Names:  names,
			}, nil
		}
		return na, nil
	})
}

// DefaultExtensionAPIs returns the Chromium-family and Firefox sources
// rooted at home.
func DefaultExtensionAPIs(home string) []ExtensionAPI {
	return []ExtensionAPI{
		ChromiumExtensions{ProfileDirs: []string{
			filepath.Join(home, ".config", "google-chrome", "Default"),
			filepath.Join(home, ".config", "chromium", "Default"),
			filepath.Join(home, ".config", "BraveSoftware", "Brave-Browser", "Default"),
			filepath.Join(home, ".config", "microsoft-edge", "Default"),
			filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default"),
		}},
		FirefoxExtensions{ProfileGlobs: []string{
			filepath.Join(home, ".mozilla", "firefox", "*"),
			filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles", "*"),
		}},
	}
}

// ChromiumExtensions enumerates <profile>/Extensions/<id>/<version>/manifest.json.
type ChromiumExtensions struct {
	ProfileDirs []string
}

func (ChromiumExtensions) Name() string { return "Chromium" }

func (c ChromiumExtensions) Present() bool {
	return c.extensionsDir() != ""
}

func (c ChromiumExtensions) extensionsDir() string {
	for _, dir := range c.ProfileDirs {
		if ext := filepath.Join(dir, "Extensions"); isDir(ext) {
			return ext
		}
	}
	return ""
}

func (c ChromiumExtensions) ListExtensions(ctx context.Context) ([]string, error) {
	root := c.extensionsDir()
	if root == "" {
		return nil, errMissing("Extensions directory")
	}
	ids, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !id.IsDir() || strings.HasPrefix(id.Name(), "Temp") {
			continue
		}
		manifests, _ := filepath.Glob(filepath.Join(root, id.Name(), "*", "manifest.json"))
		if len(manifests) == 0 {
			continue
		}
		sort.Strings(manifests)
		names = append(names, manifestName(manifests[len(manifests)-1], id.Name()))
	}
	return names, nil
}

// Chromium manifests may contain comments, so they go through jsonc first.
func manifestName(path, fallback string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	var m struct {
		Name string `json:"name"`
	}
	if err := fastJSON.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return fallback
	}
	if m.Name == "" || strings.HasPrefix(m.Name, "__MSG_") {
		return fallback
	}
	return m.Name
}

// FirefoxExtensions reads the add-on database of the first profile holding
// an extensions.json.
type FirefoxExtensions struct {
	ProfileGlobs []string
}

func (FirefoxExtensions) Name() string { return "Firefox" }

func (f FirefoxExtensions) Present() bool {
	return f.database() != ""
}

func (f FirefoxExtensions) database() string {
	for _, pattern := range f.ProfileGlobs {
		matches, _ := filepath.Glob(filepath.Join(pattern, "extensions.json"))
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[0]
		}
	}
	return ""
}

type firefoxAddonDB struct {
	Addons []struct {
		ID            string `json:"id"`
		Type          string `json:"type"`
		Location      string `json:"location"`
		DefaultLocale struct {
			Name string `json:"name"`
		} `json:"defaultLocale"`
	} `json:"addons"`
}

// ListExtensions returns user-installed extensions; built-in and system
// add-ons are skipped.
func (f FirefoxExtensions) ListExtensions(_ context.Context) ([]string, error) {
	path := f.database()
	if path == "" {
		return nil, errMissing("extensions.json")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var db firefoxAddonDB
	if err := fastJSON.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	names := make([]string, 0, len(db.Addons))
	for _, a := range db.Addons {
		if a.Type != "extension" || a.Location != "app-profile" {
			continue
		}
		name := a.DefaultLocale.Name
		if name == "" {
			name = a.ID
		}
		names = append(names, name)
	}
	return names, nil
}
