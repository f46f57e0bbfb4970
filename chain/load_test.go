package chain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ArthurTh0mas/martinez/evm"
)

const testSpecJSON = `{
  "name": "testnet",
  "upgrades": {
    "homestead": 0,
    "tangerine": 0,
    "spurious": 0,
    "byzantium": 10,
    "constantinople": 20,
    "petersburg": 20,
    "istanbul": 30
  },
  "params": {
    "chain_id": 1337,
    "network_id": 1337,
    "maximum_extra_data_size": 32,
    "min_gas_limit": 5000
  },
  "genesis": {
    "gas_limit": 8000000
  },
  "contracts": [
    {
      "height": 0,
      "address": "0x0000000000000000000000000000000000000001",
      "precompile": {"kind": "ecrecover", "base": 3000}
    }
  ]
}`

func TestLoadSpec_ReadsJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testnet.json")
	if err := os.WriteFile(path, []byte(testSpecJSON), 0600); err != nil {
		t.Fatalf("failed to write spec file: %v", err)
	}

	spec, err := LoadSpec(path)
	if err != nil {
		t.Fatalf("failed to load spec: %v", err)
	}
	if want, got := "testnet", spec.Name; want != got {
		t.Errorf("wrong chain name, wanted %q, got %q", want, got)
	}
	if want, got := uint64(1337), spec.Params.ChainID; want != got {
		t.Errorf("wrong chain id, wanted %d, got %d", want, got)
	}
	if spec.Upgrades.Byzantium == nil || *spec.Upgrades.Byzantium != 10 {
		t.Errorf("wrong Byzantium activation, got %v", spec.Upgrades.Byzantium)
	}
	if spec.Upgrades.Berlin != nil {
		t.Errorf("unlisted forks must stay inactive, got %v", *spec.Upgrades.Berlin)
	}
	if want, got := evm.Istanbul, spec.ResolveRevision(30, 0); want != got {
		t.Errorf("wrong revision at height 30, wanted %v, got %v", want, got)
	}

	if want, got := 1, len(spec.Contracts); want != got {
		t.Fatalf("wrong number of contract overlays, wanted %d, got %d", want, got)
	}
	overlay := spec.Contracts[0]
	if want := (evm.Address{19: 0x01}); overlay.Address != want {
		t.Errorf("wrong overlay address, wanted %v, got %v", want, overlay.Address)
	}
	if want, got := EcRecover, overlay.Precompile.Kind; want != got {
		t.Errorf("wrong precompile kind, wanted %v, got %v", want, got)
	}
}

func TestLoadSpec_RejectsInvalidSchedule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	content := `{"name": "broken", "upgrades": {"homestead": 100, "byzantium": 10}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write spec file: %v", err)
	}
	if _, err := LoadSpec(path); err == nil {
		t.Errorf("expected loading to fail for a non-monotonic schedule")
	}
}

func TestLoadSpec_MissingFileReportsError(t *testing.T) {
	if _, err := LoadSpec(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}
