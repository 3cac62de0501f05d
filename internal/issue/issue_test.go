// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func stubRender(t *testing.T) {
	t.Helper()
	original := render
	t.Cleanup(func() { render = original })
	render = func(in string, _ string) (string, error) { return in, nil }
}

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		contains string
	}{
		{LayerResolutionFailedId, "No layer definition matches"},
		{ConfigNotFoundId, "Configuration file not found"},
		{InvalidConfigId, "Invalid configuration"},
		{DockerUnavailableId, "Docker is not running"},
		{ImageUnavailableId, "Development image not available"},
		{EnvironmentNotInitializedId, "Environment not initialized"},
		{PermissionDeniedId, "Permission denied"},
		{BuildFailedId, "Image build failed"},
	}

	for _, tt := range tests {
		got := Get(tt.id)
		if got == nil {
			t.Errorf("Get(%d) returned nil", tt.id)
			continue
		}
		if !strings.Contains(string(got.MarkdownMsg()), tt.contains) {
			t.Errorf("Get(%d) message does not contain %q", tt.id, tt.contains)
		}
	}

	if Get(Id(9999)) != nil {
		t.Error("Get() with unknown id should return nil")
	}
}

func TestValues_SortedById(t *testing.T) {
	values := Values()
	if len(values) != len(issues) {
		t.Fatalf("Values() returned %d issues, want %d", len(values), len(issues))
	}
	for i := 1; i < len(values); i++ {
		if values[i-1].Id() >= values[i].Id() {
			t.Errorf("Values() not sorted at %d: %d >= %d", i, values[i-1].Id(), values[i].Id())
		}
	}
}

func TestIssue_Render(t *testing.T) {
	stubRender(t)

	for _, is := range Values() {
		rendered, err := is.Render("")
		if err != nil {
			t.Errorf("issue %d failed to render: %v", is.Id(), err)
		}
		if !strings.Contains(rendered, "devlayer") {
			t.Errorf("issue %d should mention the devlayer command", is.Id())
		}
	}
}

func TestIssue_RenderLinks(t *testing.T) {
	stubRender(t)

	is := &Issue{
		id:       LayerResolutionFailedId,
		mdMsg:    "# body",
		docLinks: []HttpLink{"https://docs.example/layers"},
		extLinks: []HttpLink{"https://docs.docker.com/build/bake/"},
	}
	rendered, err := is.Render("dark")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"## See also", "<https://docs.example/layers>", "<https://docs.docker.com/build/bake/>"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered output missing %q:\n%s", want, rendered)
		}
	}

	links := is.DocLinks()
	links[0] = "modified"
	if is.DocLinks()[0] == "modified" {
		t.Error("DocLinks() should return a clone")
	}
}
