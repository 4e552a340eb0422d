package backend

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ericleaf/circt/internal/firrtl"
)

func testCircuit() *firrtl.Circuit {
	top := &firrtl.Module{Name: "top", Ports: []firrtl.Port{
		{Name: "clock", Direction: firrtl.Input, Type: firrtl.ClockType{}},
		{Name: "reset", Direction: firrtl.Input, Type: firrtl.UIntType{Width: 1}},
	}}
	circuit := &firrtl.Circuit{Name: "top", Top: top}
	circuit.AddModule(top)
	return circuit
}

func TestEmitVerilogRunsFirtool(t *testing.T) {
	requirePosix(t)

	tmp := t.TempDir()
	firtool := writeScript(t, tmp, "firtool.sh", `#!/bin/sh
set -e
IN="$1"
OUT=""
while [ "$#" -gt 0 ]; do
  case "$1" in
    -o)
      OUT="$2"
      shift 2
      ;;
    *)
      shift
      ;;
  esac
done
echo "// fake firtool" > "$OUT"
cat "$IN" >> "$OUT"
`)

	out := filepath.Join(tmp, "out.sv")
	res, err := EmitVerilog(testCircuit(), out, Options{FirtoolPath: firtool})
	if err != nil {
		t.Fatalf("EmitVerilog failed: %v", err)
	}
	if res.MainPath != out {
		t.Fatalf("expected main path %s, got %s", out, res.MainPath)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "// fake firtool") {
		t.Fatalf("expected firtool banner, got:\n%s", data)
	}
	if !strings.Contains(string(data), "circuit top :") {
		t.Fatalf("expected rendered firrtl in output, got:\n%s", data)
	}
}

func TestEmitVerilogDumpsFIR(t *testing.T) {
	requirePosix(t)

	tmp := t.TempDir()
	firtool := writeScript(t, tmp, "firtool.sh", `#!/bin/sh
exit 0
`)
	firDump := filepath.Join(tmp, "dump", "design.fir")
	out := filepath.Join(tmp, "out.sv")

	if _, err := EmitVerilog(testCircuit(), out, Options{FirtoolPath: firtool, DumpFIRPath: firDump}); err != nil {
		t.Fatalf("EmitVerilog failed: %v", err)
	}
	data, err := os.ReadFile(firDump)
	if err != nil {
		t.Fatalf("read fir dump: %v", err)
	}
	if !strings.Contains(string(data), "module top :") {
		t.Fatalf("fir dump content:\n%s", data)
	}
}

func TestEmitVerilogRequiresOutputPath(t *testing.T) {
	if _, err := EmitVerilog(testCircuit(), "", Options{}); err == nil {
		t.Fatalf("expected error for missing output path")
	}
	if _, err := EmitVerilog(nil, "out.sv", Options{}); err == nil {
		t.Fatalf("expected error for nil circuit")
	}
}

func TestEmitVerilogFailsWhenFirtoolFails(t *testing.T) {
	requirePosix(t)

	tmp := t.TempDir()
	firtool := writeScript(t, tmp, "firtool.sh", `#!/bin/sh
exit 3
`)
	out := filepath.Join(tmp, "out.sv")
	if _, err := EmitVerilog(testCircuit(), out, Options{FirtoolPath: firtool}); err == nil {
		t.Fatalf("expected error when firtool exits nonzero")
	}
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return path
}

func requirePosix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stubs require a POSIX shell")
	}
}
