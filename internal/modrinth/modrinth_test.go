package modrinth

import "testing"

func TestMatchingFilePrefersPrimaryFile(t *testing.T) {
	versions := []Version{
		{
			GameVersions: []string{"1.21"},
			Loaders:      []string{"fabric"},
			Files: []VersionFile{
				{URL: "https://cdn/extra.jar", Filename: "extra.jar"},
				{URL: "https://cdn/main.jar", Filename: "main.jar", Primary: true},
			},
		},
	}

	file, ok := MatchingFile(versions, "fabric", "1.21")
	if !ok {
		t.Fatal("MatchingFile() = false, want a match")
	}
	if file.Filename != "main.jar" {
		t.Errorf("Filename = %q, want the primary file main.jar", file.Filename)
	}
}

func TestMatchingFileSkipsVersionsMissingLoaderOrGameVersion(t *testing.T) {
	versions := []Version{
		{GameVersions: []string{"1.20"}, Loaders: []string{"fabric"}, Files: []VersionFile{{Filename: "wrong-mc.jar"}}},
		{GameVersions: []string{"1.21"}, Loaders: []string{"forge"}, Files: []VersionFile{{Filename: "wrong-loader.jar"}}},
		{GameVersions: []string{"1.21"}, Loaders: []string{"fabric"}, Files: []VersionFile{{Filename: "right.jar"}}},
	}

	file, ok := MatchingFile(versions, "fabric", "1.21")
	if !ok {
		t.Fatal("MatchingFile() = false, want a match on the third version")
	}
	if file.Filename != "right.jar" {
		t.Errorf("Filename = %q, want right.jar", file.Filename)
	}
}

func TestMatchingFileFallsBackToFirstFileWhenNonePrimary(t *testing.T) {
	versions := []Version{
		{
			GameVersions: []string{"1.21"},
			Loaders:      []string{"fabric"},
			Files:        []VersionFile{{Filename: "only.jar"}},
		},
	}
	file, ok := MatchingFile(versions, "fabric", "1.21")
	if !ok || file.Filename != "only.jar" {
		t.Errorf("MatchingFile() = (%v, %v), want (only.jar, true)", file, ok)
	}
}

func TestMatchingFileReturnsFalseWhenNoVersionMatches(t *testing.T) {
	versions := []Version{
		{GameVersions: []string{"1.20"}, Loaders: []string{"forge"}, Files: []VersionFile{{Filename: "nope.jar"}}},
	}
	if _, ok := MatchingFile(versions, "fabric", "1.21"); ok {
		t.Error("MatchingFile() = true, want false when nothing matches")
	}
}
