package canonicalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// objectText renders key/value pairs as a JSON object in the given order.
func objectText(keys []string, values []string, order []int) string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, idx := range order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(keys[idx])
		v, _ := json.Marshal(values[idx])
		fmt.Fprintf(&buf, "%s:%s", k, v)
	}
	buf.WriteByte('}')
	return buf.String()
}

// TestCanonicalize_PermutationInvariance checks that any insertion order of
// the same entries yields the same bytes.
func TestCanonicalize_PermutationInvariance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("canonical form ignores key insertion order", prop.ForAll(
		func(rawKeys []string, values []string, seed int64) bool {
			seen := make(map[string]bool)
			var keys, vals []string
			for i := 0; i < len(rawKeys) && i < len(values); i++ {
				if seen[rawKeys[i]] {
					continue
				}
				seen[rawKeys[i]] = true
				keys = append(keys, rawKeys[i])
				vals = append(vals, values[i])
			}

			identity := make([]int, len(keys))
			for i := range identity {
				identity[i] = i
			}
			shuffled := rand.New(rand.NewSource(seed)).Perm(len(keys))

			var a, b any
			if err := json.Unmarshal([]byte(objectText(keys, vals, identity)), &a); err != nil {
				return false
			}
			if err := json.Unmarshal([]byte(objectText(keys, vals, shuffled)), &b); err != nil {
				return false
			}

			ca, errA := Canonicalize(a)
			cb, errB := Canonicalize(b)
			return errA == nil && errB == nil && bytes.Equal(ca, cb)
		},
		gen.SliceOf(gen.AnyString()),
		gen.SliceOf(gen.AnyString()),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestCanonicalize_NumberRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("canonical numbers parse back to the same float", prop.ForAll(
		func(f float64) bool {
			s, err := String(f)
			if err != nil {
				return false
			}
			var back float64
			if err := json.Unmarshal([]byte(s), &back); err != nil {
				return false
			}
			return back == f || (f == 0 && back == 0)
		},
		gen.Float64(),
	))

	properties.TestingRun(t)
}
