package snapshots

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "snap.bin", ObjectKey("/opt/evt/snapshots/snap.bin"))
	assert.Equal(t, "rev-2019-06-01.logs", ObjectKey("rev-2019-06-01.logs"))
}

func TestSymbolKey(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		file string
		want string
	}{
		{
			name: "deep path keeps last three elements",
			ref:  "evt",
			file: "/build/symbols/evtd/ab12cd/evtd.debug",
			want: "evt/evtd/ab12cd/evtd.debug",
		},
		{
			name: "short path kept whole",
			ref:  "evt",
			file: "evtc/ff00/evtc.debug",
			want: "evt/evtc/ff00/evtc.debug",
		},
		{
			name: "release ref",
			ref:  "evt-2.0",
			file: "/s/evtwd/99aa/evtwd.debug",
			want: "evt-2.0/evtwd/99aa/evtwd.debug",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SymbolKey(tt.ref, tt.file))
		})
	}
}

func TestBlockMetaMetadata(t *testing.T) {
	meta := BlockMeta{ID: "abcd", Num: "42", Time: "2019-06-01T10:00:00", Postgres: true}
	assert.Equal(t, map[string]string{
		"block-id":   "abcd",
		"block_num":  "42",
		"block_time": "2019-06-01T10:00:00",
		"postgres":   "true",
	}, meta.metadata())

	meta = BlockMeta{}
	assert.Equal(t, "false", meta.metadata()["postgres"])
}
