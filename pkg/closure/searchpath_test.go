// SPDX-License-Identifier: MPL-2.0

package closure

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseLDConf(t *testing.T) {
	dir := t.TempDir()

	confD := filepath.Join(dir, "ld.so.conf.d")
	if err := os.Mkdir(confD, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(confD, "libc.conf"), []byte("# libc default\n/usr/lib/libc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(confD, "zz-local.conf"), []byte("/usr/local/lib\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	conf := filepath.Join(dir, "ld.so.conf")
	content := "# comment line\ninclude ld.so.conf.d/*.conf\n\n/opt/vendor/lib # trailing comment\n"
	if err := os.WriteFile(conf, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	want := []string{"/usr/lib/libc", "/usr/local/lib", "/opt/vendor/lib"}
	if got := parseLDConf(conf); !reflect.DeepEqual(got, want) {
		t.Errorf("parseLDConf() = %v, want %v", got, want)
	}
}

func TestParseLDConfMissingFile(t *testing.T) {
	if got := parseLDConf(filepath.Join(t.TempDir(), "absent.conf")); got != nil {
		t.Errorf("parseLDConf() of missing file = %v, want nil", got)
	}
}

func TestParseLDConfIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "ld.so.conf")
	// A file that includes itself must terminate at the depth bound.
	if err := os.WriteFile(conf, []byte("include ld.so.conf\n/lib/once\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := parseLDConf(conf)
	if len(got) == 0 {
		t.Fatal("parseLDConf() = empty, want at least one directory")
	}
	for _, d := range got {
		if d != "/lib/once" {
			t.Fatalf("parseLDConf() returned unexpected directory %q", d)
		}
	}
}

func TestEnvSearchDirs(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{name: "empty", value: "", want: nil},
		{name: "single", value: "/opt/lib", want: []string{"/opt/lib"}},
		{name: "colon separated", value: "/a:/b:/c", want: []string{"/a", "/b", "/c"}},
		{name: "semicolon separated", value: "/a;/b", want: []string{"/a", "/b"}},
		{name: "empty segments dropped", value: ":/a::/b:", want: []string{"/a", "/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := envSearchDirs(tt.value); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("envSearchDirs(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
