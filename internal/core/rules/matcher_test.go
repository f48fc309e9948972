package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClassifier treats every operand listed in classes as protected.
type stubClassifier struct {
	classes map[string]string
	calls   int
}

func (s *stubClassifier) ClassifyArgs(argv []string) []PathHit {
	s.calls++
	var hits []PathHit
	for _, a := range argv {
		if c, ok := s.classes[a]; ok {
			hits = append(hits, PathHit{Arg: a, Class: c})
		}
	}
	return hits
}

func TestPattern_Match(t *testing.T) {
	tests := []struct {
		name    string
		pattern Pattern
		argv    []string
		want    bool
	}{
		{"single arg", Pattern{"publish"}, []string{"publish"}, true},
		{"whole argument only", Pattern{"push && --force"}, []string{"push", "--force-with-lease"}, false},
		{"and terms anywhere", Pattern{"push && --force"}, []string{"push", "origin", "feature", "--force"}, true},
		{"contiguous term", Pattern{"stash clear"}, []string{"stash", "clear"}, true},
		{"contiguous term split", Pattern{"stash clear"}, []string{"stash", "list", "clear"}, false},
		{"no cross-argument match", Pattern{"push --force"}, []string{"push --force"}, false},
		{"alternation", Pattern{"-rf", "-fr"}, []string{"-fr", "x"}, true},
		{"prefix term", Pattern{"of=/dev/*"}, []string{"if=img", "of=/dev/sda"}, true},
		{"prefix term miss", Pattern{"of=/dev/*"}, []string{"of=./dev/sda"}, false},
		{"case sensitive", Pattern{"-D"}, []string{"branch", "-d", "x"}, false},
		{"empty pattern matches", nil, []string{"anything"}, true},
		{"empty argv", Pattern{"push"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Rule{Pattern: tt.pattern}
			assert.Equal(t, tt.want, r.MatchesArgs(tt.argv))
		})
	}
}

func TestMatcher_FirstMatchWins(t *testing.T) {
	reg := MustLoadBuiltin()
	m := NewMatcher(reg, nil)

	tests := []struct {
		program string
		argv    []string
		want    string
	}{
		{"git", []string{"push", "--force", "origin", "main"}, "git-push-force-main"},
		{"git", []string{"push", "-f", "origin", "master"}, "git-push-force-main"},
		{"git", []string{"push", "--force"}, "git-push-force"},
		{"git", []string{"push", "origin", "+feature"}, "git-push-force"},
		{"git", []string{"push", "--force-with-lease"}, "git-push-force-with-lease"},
		{"git", []string{"reset", "--hard", "HEAD~1"}, "git-reset-hard"},
		{"git", []string{"clean", "-fdx"}, "git-clean-force"},
		{"rm", []string{"-rf", "--no-preserve-root", "/"}, "rm-no-preserve-root"},
		{"rm", []string{"-rf", "build"}, "rm-recursive-force"},
		{"rm", []string{"-r", "-f", "build"}, "rm-recursive-force"},
		{"kubectl", []string{"delete", "ns", "prod"}, "kubectl-delete-namespace"},
		{"kubectl", []string{"delete", "pod", "--all"}, "kubectl-delete-all"},
		{"kubectl", []string{"delete", "pod", "web-0"}, "kubectl-delete"},
		{"dd", []string{"if=disk.img", "of=/dev/sdb"}, "dd-raw-device"},
		{"/usr/local/bin/npm", []string{"publish"}, "npm-publish"},
		{"pip3.exe", []string{"install", "--break-system-packages", "x"}, "pip3-break-system"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := m.Match(tt.program, tt.argv)
			require.NotNil(t, got.Rule, "expected %s to match", tt.argv)
			assert.Equal(t, tt.want, got.Rule.ID)
			assert.False(t, got.FastPath)
		})
	}
}

func TestMatcher_DeclaredOrder(t *testing.T) {
	reg := MustLoadBuiltin()

	var ids []string
	for _, r := range reg.AllFor("git")[:3] {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"git-push-force-main", "git-push-force", "git-push-force-with-lease"}, ids)

	ids = nil
	for _, r := range reg.AllFor("rm") {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"rm-no-preserve-root", "rm-protected-path", "rm-recursive-force"}, ids)

	ids = nil
	for _, r := range reg.AllFor("kubectl") {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"kubectl-delete-namespace", "kubectl-delete-all", "kubectl-delete"}, ids)
}

func TestMatcher_Deterministic(t *testing.T) {
	m := NewMatcher(MustLoadBuiltin(), nil)
	argv := []string{"push", "--force", "origin", "main"}

	first := m.Match("git", argv)
	for i := 0; i < 100; i++ {
		got := m.Match("git", argv)
		require.Equal(t, first.Rule.ID, got.Rule.ID)
	}
}

func TestMatcher_FastPath(t *testing.T) {
	classifier := &stubClassifier{}
	m := NewMatcher(MustLoadBuiltin(), classifier)

	tests := []struct {
		name     string
		program  string
		argv     []string
		fastPath bool
	}{
		{"git status", "git", []string{"status"}, true},
		{"git log", "git", []string{"log", "--oneline", "-5"}, true},
		{"git diff to file", "git", []string{"diff", "--output=patch.diff"}, false},
		{"git push", "git", []string{"push"}, false},
		{"global option first", "git", []string{"-C", "repo", "status"}, false},
		{"rm help", "rm", []string{"--help"}, true},
		{"kubectl get", "kubectl", []string{"get", "pods"}, true},
		{"npm ls global", "npm", []string{"ls", "-g"}, false},
		{"unknown program", "ls", []string{"-la"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(tt.program, tt.argv)
			assert.Equal(t, tt.fastPath, got.FastPath)
			if tt.fastPath {
				assert.Nil(t, got.Rule)
			}
		})
	}
	assert.Zero(t, classifier.calls, "fast path and pattern-only rules must not classify paths")
}

func TestMatcher_ProtectedPathRules(t *testing.T) {
	reg := MustLoadBuiltin()

	t.Run("classified operand wins over later rules", func(t *testing.T) {
		c := &stubClassifier{classes: map[string]string{"/home/u/.ssh": "credential-dir"}}
		got := NewMatcher(reg, c).Match("rm", []string{"-rf", "/home/u/.ssh"})
		require.NotNil(t, got.Rule)
		assert.Equal(t, "rm-protected-path", got.Rule.ID)
		require.NotNil(t, got.Hit)
		assert.Equal(t, "credential-dir", got.Hit.Class)
		assert.Equal(t, 1, c.calls)
	})

	t.Run("class outside the protect list", func(t *testing.T) {
		c := &stubClassifier{classes: map[string]string{"/home/u/.bashrc": "config-file"}}
		got := NewMatcher(reg, c).Match("chmod", []string{"644", "/home/u/.bashrc"})
		assert.Nil(t, got.Rule)
	})

	t.Run("nil classifier disables protection", func(t *testing.T) {
		got := NewMatcher(reg, nil).Match("rm", []string{"-rf", "/home/u/.ssh"})
		require.NotNil(t, got.Rule)
		assert.Equal(t, "rm-recursive-force", got.Rule.ID)
	})

	t.Run("no hit and no other rule", func(t *testing.T) {
		got := NewMatcher(reg, &stubClassifier{}).Match("mv", []string{"a", "b"})
		assert.Nil(t, got.Rule)
	})
}

func TestNormalizeProgram(t *testing.T) {
	assert.Equal(t, "git", NormalizeProgram("/usr/bin/git"))
	assert.Equal(t, "git", NormalizeProgram("git.exe"))
	assert.Equal(t, "rm", NormalizeProgram(" rm "))
}
