package checkpoint

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/dbspgo/dbsp/circuit"
)

type statefulOp struct {
	state string
}

func (s *statefulOp) Step() error  { return nil }
func (s *statefulOp) Flush() error { return nil }

func (s *statefulOp) SerializeState() ([]byte, error) { return []byte(s.state), nil }
func (s *statefulOp) DeserializeState(data []byte) error {
	s.state = string(data)
	return nil
}

func buildStatefulCircuit(t *testing.T, state string) (*circuit.CircuitDefinition, *statefulOp) {
	t.Helper()
	b := circuit.NewBuilder(7)
	op := &statefulOp{state: state}
	_, err := b.AddOperator("stateful", circuit.KindGeneric, op)
	require.NoError(t, err)
	def, err := b.Build()
	require.NoError(t, err)
	return def, op
}

func TestCreateThenRestoreRoundTrips(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := New(fs, "/data", nil, nil)

	def, op := buildStatefulCircuit(t, "hello")
	m, err := store.Create(def, 3, "snap")
	require.NoError(t, err)
	require.Len(t, m.Operators, 1)

	op.state = "clobbered"
	restored, err := store.Restore(def, 3)
	require.NoError(t, err)
	require.Equal(t, "snap", restored.Name)
	require.Equal(t, "hello", op.state)
}

func TestRestoreDetectsCorruptManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := New(fs, "/data", nil, nil)
	def, _ := buildStatefulCircuit(t, "x")
	_, err := store.Create(def, 1, "snap")
	require.NoError(t, err)

	raw, err := afero.ReadFile(fs, "/data/cp_1/manifest.bin")
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF // flip a bit in the CRC trailer
	require.NoError(t, afero.WriteFile(fs, "/data/cp_1/manifest.bin", raw, 0o644))

	_, err = store.Restore(def, 1)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestRestoreAcceptsLegacyV1ManifestWithoutCRC(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := New(fs, "/data", nil, nil)
	def, op := buildStatefulCircuit(t, "legacy-state")

	require.NoError(t, fs.MkdirAll("/data/cp_9", 0o755))
	nodeID := def.InsertionOrder[0]
	require.NoError(t, afero.WriteFile(fs, "/data/cp_9/op_0.bin", []byte("legacy-state"), 0o644))

	m := Manifest{
		CircuitID: def.ID,
		Epoch:     9,
		Name:      "legacy",
		Operators: []OperatorEntry{{NodeID: nodeID, FileName: "op_0.bin", Size: int64(len("legacy-state"))}},
	}
	payload := encodeManifest(m)
	raw := append([]byte(MagicV1Legacy), encodeU32(uint32(len(payload)))...)
	raw = append(raw, payload...)
	require.NoError(t, afero.WriteFile(fs, "/data/cp_9/manifest.bin", raw, 0o644))

	op.state = "overwritten"
	restored, err := store.Restore(def, 9)
	require.NoError(t, err)
	require.Equal(t, "legacy", restored.Name)
	require.Equal(t, "legacy-state", op.state)
}

func TestRestoreSkipsOperatorWithMissingStateFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := New(fs, "/data", nil, nil)
	def, op := buildStatefulCircuit(t, "kept")
	_, err := store.Create(def, 2, "snap")
	require.NoError(t, err)

	require.NoError(t, fs.Remove("/data/cp_2/op_0.bin"))

	op.state = "kept"
	_, err = store.Restore(def, 2)
	require.NoError(t, err)
	require.Equal(t, "kept", op.state)
}

func encodeU32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
