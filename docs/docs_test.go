package docs

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type operation struct {
	ID          string   `json:"operationId"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Responses   map[string]struct {
		Description string `json:"description"`
	} `json:"responses"`
}

type annotated struct {
	id, summary, description, tag, path, method string
	failures                                    map[string]string
}

// readAnnotations collects the godoc route annotations of the handlers.
func readAnnotations(t *testing.T) []annotated {
	t.Helper()
	files, err := filepath.Glob(filepath.Join("..", "internal", "http", "handlers", "*_handler.go"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	var out []annotated
	for _, name := range files {
		f, err := os.Open(name)
		require.NoError(t, err)
		cur := annotated{failures: map[string]string{}}
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(sc.Text()), "//"))
			key, rest, ok := strings.Cut(line, " ")
			if !ok {
				continue
			}
			rest = strings.TrimSpace(rest)
			switch key {
			case "@ID":
				cur.id = rest
			case "@Summary":
				cur.summary = rest
			case "@Description":
				cur.description = rest
			case "@Tags":
				cur.tag = rest
			case "@Failure":
				fields := strings.Fields(rest)
				if i := strings.Index(rest, `"`); i >= 0 && len(fields) > 0 {
					cur.failures[fields[0]] = strings.Trim(rest[i:], `"`)
				}
			case "@Router":
				p, m, _ := strings.Cut(rest, " ")
				cur.path = p
				cur.method = strings.Trim(strings.TrimSpace(m), "[]")
				out = append(out, cur)
				cur = annotated{failures: map[string]string{}}
			}
		}
		require.NoError(t, sc.Err())
		require.NoError(t, f.Close())
	}
	return out
}

func TestDocMatchesHandlerAnnotations(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]operation `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))

	routes := readAnnotations(t)
	require.NotEmpty(t, routes)

	documented := 0
	for _, ops := range doc.Paths {
		documented += len(ops)
	}
	assert.Equal(t, len(routes), documented, "every documented operation has an annotated handler")

	for _, r := range routes {
		op, ok := doc.Paths[r.path][r.method]
		if !assert.True(t, ok, "%s %s missing from doc", r.method, r.path) {
			continue
		}
		assert.Equal(t, r.id, op.ID, r.path)
		assert.Equal(t, r.summary, op.Summary, r.path)
		assert.Equal(t, r.description, op.Description, r.path)
		assert.Equal(t, []string{r.tag}, op.Tags, r.path)
		for code, desc := range r.failures {
			assert.Equal(t, desc, op.Responses[code].Description, "%s %s %s", r.method, r.path, code)
		}
	}
}
