package probe

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// PCI vendor ids of common display adapters.
var pciVendors = map[string]string{
	"0x1002": "AMD",
	"0x106b": "Apple",
	"0x10de": "NVIDIA",
	"0x1414": "Microsoft",
	"0x15ad": "VMware",
	"0x1af4": "Red Hat",
	"0x1234": "QEMU",
	"0x8086": "Intel",
}

var (
	drmCardRe   = regexp.MustCompile(`^card\d+$`)
	modeSizeRe  = regexp.MustCompile(`^(\d+)x(\d+)`)
	modeRateRe  = regexp.MustCompile(`-(\d+)\s*$`)
	virtualSize = regexp.MustCompile(`^(\d+),(\d+)`)
)

// Sysfs reads graphics and display facts from a sysfs tree. Root is "/sys"
// on a live system and a fixture directory in tests.
type Sysfs struct {
	Root string
}

func (s Sysfs) path(parts ...string) string {
	root := s.Root
	if root == "" {
		root = "/sys"
	}
	return filepath.Join(append([]string{root}, parts...)...)
}

// OpenContext opens the first DRM card.
func (s Sysfs) OpenContext(_ context.Context) (GraphicsContext, error) {
	entries, err := os.ReadDir(s.path("class", "drm"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoGraphicsContext
		}
		return nil, fmt.Errorf("read drm class: %w", err)
	}

	var cards []string
	for _, e := range entries {
		if drmCardRe.MatchString(e.Name()) {
			cards = append(cards, e.Name())
		}
	}
	if len(cards) == 0 {
		return nil, ErrNoGraphicsContext
	}
	sort.Strings(cards)
	return drmCard{dir: s.path("class", "drm", cards[0], "device")}, nil
}

type drmCard struct {
	dir string
}

// DebugInfo maps the PCI vendor id and names the renderer after the kernel
// driver and device id.
func (c drmCard) DebugInfo() (string, string, bool) {
	vendorID := readTrimmed(filepath.Join(c.dir, "vendor"))
	deviceID := readTrimmed(filepath.Join(c.dir, "device"))
	if vendorID == "" || deviceID == "" {
		return "", "", false
	}

	vendor, ok := pciVendors[strings.ToLower(vendorID)]
	if !ok {
		vendor = vendorID
	}

	driver := ueventValue(filepath.Join(c.dir, "uevent"), "DRIVER")
	if driver == "" {
		driver = vendor
	}
	renderer := fmt.Sprintf("%s [%s:%s]", driver,
		strings.TrimPrefix(strings.ToLower(vendorID), "0x"),
		strings.TrimPrefix(strings.ToLower(deviceID), "0x"))
	return vendor, renderer, true
}

// Geometry returns the primary display size in pixels: the framebuffer
// virtual size, or the first mode of a connected DRM connector.
func (s Sysfs) Geometry() (int, int, error) {
	if m := virtualSize.FindStringSubmatch(readTrimmed(s.path("class", "graphics", "fb0", "virtual_size"))); m != nil {
		w, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])
		if w > 0 && h > 0 {
			return w, h, nil
		}
	}

	connectors, _ := filepath.Glob(s.path("class", "drm", "card*-*"))
	sort.Strings(connectors)
	for _, dir := range connectors {
		if readTrimmed(filepath.Join(dir, "status")) != "connected" {
			continue
		}
		first := firstLine(filepath.Join(dir, "modes"))
		if m := modeSizeRe.FindStringSubmatch(first); m != nil {
			w, _ := strconv.Atoi(m[1])
			h, _ := strconv.Atoi(m[2])
			return w, h, nil
		}
	}
	return 0, 0, errMissing("display geometry")
}

// RefreshHint reads the refresh rate from the framebuffer mode string,
// e.g. "U:1920x1080p-60".
func (s Sysfs) RefreshHint() (int, bool) {
	m := modeRateRe.FindStringSubmatch(firstLine(s.path("class", "graphics", "fb0", "mode")))
	if m == nil {
		m = modeRateRe.FindStringSubmatch(firstLine(s.path("class", "graphics", "fb0", "modes")))
	}
	if m == nil {
		return 0, false
	}
	hz, err := strconv.Atoi(m[1])
	if err != nil || hz <= 0 {
		return 0, false
	}
	return hz, true
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func firstLine(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if sc.Scan() {
		return strings.TrimSpace(sc.Text())
	}
	return ""
}

func ueventValue(path, key string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if k, v, ok := strings.Cut(sc.Text(), "="); ok && k == key {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
