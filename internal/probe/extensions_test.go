package probe

import (
	"context"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

const firefoxDB = `{
  "schemaVersion": 36,
  "addons": [
    {"id": "uBlock0@raymondhill.net", "type": "extension", "location": "app-profile", "defaultLocale": {"name": "uBlock Origin"}},
    {"id": "formautofill@mozilla.org", "type": "extension", "location": "app-builtin", "defaultLocale": {"name": "Form Autofill"}},
    {"id": "default-theme@mozilla.org", "type": "theme", "location": "app-profile", "defaultLocale": {"name": "System theme"}},
    {"id": "nameless@example.org", "type": "extension", "location": "app-profile", "defaultLocale": {}}
  ]
}`

func TestExtensionProbe_NoAPI(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	got := (&ExtensionProbe{APIs: DefaultExtensionAPIs(home)}).Probe(context.Background())
	if got.Count.String() != "N/A" {
		t.Fatalf("count = %q, want N/A", got.Count.String())
	}
	if got.Count.Available() {
		t.Fatal("count should be unavailable")
	}
}

func TestExtensionProbe_EmptyList(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	writeFixture(t, home, ".config/chromium/Default/Extensions/.keep", "")

	got := (&ExtensionProbe{APIs: DefaultExtensionAPIs(home)}).Probe(context.Background())
	if got.Count.Kind != model.KindNumber || got.Count.Int() != 0 {
		t.Fatalf("count = %v, want 0", got.Count)
	}
	if got.Source != "Chromium" {
		t.Fatalf("source = %q, want Chromium", got.Source)
	}
}

func TestExtensionProbe_Chromium(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	ext := ".config/google-chrome/Default/Extensions"
	writeFixture(t, home, ext+"/aaaa/1.0_0/manifest.json", `{
  // comments are allowed in manifests
  "name": "Dark Reader",
  "version": "1.0",
}`)
	writeFixture(t, home, ext+"/bbbb/2.1_0/manifest.json", `{"name": "__MSG_appName__"}`)
	writeFixture(t, home, ext+"/Temp/scoped/manifest.json", `{"name": "partial"}`)
	writeFixture(t, home, ext+"/cccc/README", "no manifest")
	writeFixture(t, home, ext+"/dddd/3.0_0/manifest.json", `{"name": 7}`)
	// Firefox is also installed but Chromium is found first.
	writeFixture(t, home, ".mozilla/firefox/abcd.default/extensions.json", firefoxDB)

	got := (&ExtensionProbe{APIs: DefaultExtensionAPIs(home)}).Probe(context.Background())
	if got.Count.Int() != 3 {
		t.Fatalf("count = %v, want 3", got.Count)
	}
	names := append([]string(nil), got.Names...)
	sort.Strings(names)
	if want := []string{"Dark Reader", "bbbb", "dddd"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
}

func TestExtensionProbe_Firefox(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	writeFixture(t, home, ".mozilla/firefox/abcd.default-release/extensions.json", firefoxDB)

	got := (&ExtensionProbe{APIs: DefaultExtensionAPIs(home)}).Probe(context.Background())
	if got.Source != "Firefox" {
		t.Fatalf("source = %q, want Firefox", got.Source)
	}
	want := []string{"uBlock Origin", "nameless@example.org"}
	if !reflect.DeepEqual(got.Names, want) {
		t.Fatalf("names = %v, want %v", got.Names, want)
	}
}

func TestExtensionProbe_CorruptDatabase(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	writeFixture(t, home, ".mozilla/firefox/x/extensions.json", "{not json")
	got := (&ExtensionProbe{APIs: []ExtensionAPI{FirefoxExtensions{ProfileGlobs: []string{filepath.Join(home, ".mozilla/firefox/*")}}}}).Probe(context.Background())
	if got.Count.Available() {
		t.Fatalf("count = %v, want unavailable", got.Count)
	}
}

type presentOnlyAPI struct{}

func (presentOnlyAPI) Name() string  { return "management" }
func (presentOnlyAPI) Present() bool { return true }

type panickingAPI struct{}

func (panickingAPI) Name() string  { return "broken" }
func (panickingAPI) Present() bool { panic("management API threw") }

func TestExtensionProbe_UnusableAPIs(t *testing.T) {
	t.Parallel()

	for _, api := range []ExtensionAPI{presentOnlyAPI{}, panickingAPI{}} {
		got := (&ExtensionProbe{APIs: []ExtensionAPI{api}}).Probe(context.Background())
		if got.Count.String() != "N/A" {
			t.Fatalf("%s: count = %q, want N/A", api.Name(), got.Count.String())
		}
	}
}
