package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_ScalarsOverwrite(t *testing.T) {
	target := map[string]any{"image": "app:v1", "user": "root"}
	err := Merge(target, map[string]any{"image": "app:v2"})
	require.NoError(t, err)

	assert.Equal(t, "app:v2", target["image"])
	assert.Equal(t, "root", target["user"])
}

func TestMerge_MissingKeysCopied(t *testing.T) {
	target := map[string]any{}
	err := Merge(target, map[string]any{
		"image":  "app:v1",
		"labels": map[string]any{"tier": "web"},
	})
	require.NoError(t, err)

	assert.Equal(t, "app:v1", target["image"])
	assert.Equal(t, map[string]any{"tier": "web"}, target["labels"])
}

func TestMerge_CopiedCollectionsAreIndependent(t *testing.T) {
	source := map[string]any{"labels": map[string]any{"tier": "web"}}
	target := map[string]any{}
	require.NoError(t, Merge(target, source))

	target["labels"].(map[string]any)["tier"] = "db"
	assert.Equal(t, "web", source["labels"].(map[string]any)["tier"])
}

func TestMerge_MappingsRecurse(t *testing.T) {
	target := map[string]any{
		"environment": map[string]any{"A": "1", "B": "2"},
	}
	err := Merge(target, map[string]any{
		"environment": map[string]any{"B": "override", "C": "3"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"A": "1", "B": "override", "C": "3"}, target["environment"])
}

func TestMerge_SequencesAppend(t *testing.T) {
	target := map[string]any{"ports": []any{"80:80"}}
	err := Merge(target, map[string]any{"ports": []any{"443:443"}})
	require.NoError(t, err)

	assert.Equal(t, []any{"80:80", "443:443"}, target["ports"])
}

func TestMerge_CommandAndEntrypointReplace(t *testing.T) {
	target := map[string]any{
		"command":    []any{"serve", "--dev"},
		"entrypoint": []any{"/init"},
	}
	err := Merge(target, map[string]any{
		"command":    []any{"serve"},
		"entrypoint": []any{"/bin/sh", "-c"},
	})
	require.NoError(t, err)

	assert.Equal(t, []any{"serve"}, target["command"])
	assert.Equal(t, []any{"/bin/sh", "-c"}, target["entrypoint"])
}

func TestMerge_VolumesDedupByTarget(t *testing.T) {
	target := map[string]any{
		"volumes": []any{"./conf.dev:/etc/app", "data:/var/lib/app"},
	}
	err := Merge(target, map[string]any{
		"volumes": []any{"./conf.prod:/etc/app"},
	})
	require.NoError(t, err)

	// the later layer's mount of /etc/app wins; unrelated targets survive
	assert.Equal(t, []any{"data:/var/lib/app", "./conf.prod:/etc/app"}, target["volumes"])
}

func TestMerge_VolumesWithOptionsShareTarget(t *testing.T) {
	target := map[string]any{
		"volumes": []any{"./a:/mnt:ro"},
	}
	err := Merge(target, map[string]any{
		"volumes": []any{"./b:/mnt:rw"},
	})
	require.NoError(t, err)

	assert.Equal(t, []any{"./b:/mnt:rw"}, target["volumes"])
}

func TestMerge_TypeMismatch(t *testing.T) {
	tests := []struct {
		name   string
		target map[string]any
		source map[string]any
	}{
		{
			"scalar vs mapping",
			map[string]any{"build": "."},
			map[string]any{"build": map[string]any{"context": "."}},
		},
		{
			"sequence vs mapping",
			map[string]any{"environment": []any{"A=1"}},
			map[string]any{"environment": map[string]any{"A": "1"}},
		},
		{
			"scalar vs sequence",
			map[string]any{"dns": "8.8.8.8"},
			map[string]any{"dns": []any{"8.8.8.8"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Merge(tt.target, tt.source)
			var mergeErr *MergeTypeError
			require.ErrorAs(t, err, &mergeErr)
		})
	}
}

func TestMerge_MultipleSourcesFoldInOrder(t *testing.T) {
	target := map[string]any{}
	err := Merge(target,
		map[string]any{"image": "app:v1", "user": "root"},
		map[string]any{"image": "app:v2"},
		map[string]any{"image": "app:v3"},
	)
	require.NoError(t, err)

	assert.Equal(t, "app:v3", target["image"])
	assert.Equal(t, "root", target["user"])
}

func TestMerge_Associative(t *testing.T) {
	// merging incrementally or all at once must agree for documents free of
	// the command/entrypoint/volumes special cases
	d1 := func() map[string]any {
		return map[string]any{
			"image":       "app:v1",
			"environment": map[string]any{"A": "1"},
			"ports":       []any{"80:80"},
		}
	}
	d2 := func() map[string]any {
		return map[string]any{
			"environment": map[string]any{"B": "2"},
			"ports":       []any{"443:443"},
		}
	}
	d3 := func() map[string]any {
		return map[string]any{
			"image":       "app:v3",
			"environment": map[string]any{"A": "override"},
		}
	}

	incremental := map[string]any{}
	require.NoError(t, Merge(incremental, d1(), d2()))
	require.NoError(t, Merge(incremental, d3()))

	allAtOnce := map[string]any{}
	require.NoError(t, Merge(allAtOnce, d1(), d2(), d3()))

	assert.Equal(t, allAtOnce, incremental)
}

func TestMerge_FullServiceLayering(t *testing.T) {
	base := map[string]any{
		"services": map[string]any{
			"web": map[string]any{
				"image":       "app:v1",
				"command":     []any{"serve", "--dev"},
				"environment": map[string]any{"MODE": "dev"},
				"volumes":     []any{"./conf.dev:/etc/app"},
			},
		},
	}
	override := map[string]any{
		"services": map[string]any{
			"web": map[string]any{
				"command":     []any{"serve"},
				"environment": map[string]any{"MODE": "prod", "TLS": "on"},
				"volumes":     []any{"./conf.prod:/etc/app"},
			},
		},
	}
	err := Merge(base, override)
	require.NoError(t, err)

	web := base["services"].(map[string]any)["web"].(map[string]any)
	assert.Equal(t, "app:v1", web["image"])
	assert.Equal(t, []any{"serve"}, web["command"])
	assert.Equal(t, map[string]any{"MODE": "prod", "TLS": "on"}, web["environment"])
	assert.Equal(t, []any{"./conf.prod:/etc/app"}, web["volumes"])
}
