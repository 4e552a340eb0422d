package backend

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ericleaf/circt/internal/firrtl"
)

// Options configures how the firtool backend is invoked.
type Options struct {
	// FirtoolPath optionally overrides the firtool binary. When empty the
	// backend looks it up on PATH.
	FirtoolPath string
	// DumpFIRPath writes the FIRRTL handed to firtool to the provided path
	// when non-empty.
	DumpFIRPath string
	// KeepTemps preserves the intermediate directory on disk for debugging.
	KeepTemps bool
}

// Result lists the artifacts produced during Verilog emission.
type Result struct {
	MainPath string
}

// EmitVerilog renders the circuit as FIRRTL text and invokes firtool to
// produce SystemVerilog at outputPath.
func EmitVerilog(circuit *firrtl.Circuit, outputPath string, opts Options) (Result, error) {
	if circuit == nil {
		return Result{}, fmt.Errorf("backend: circuit is nil")
	}
	if outputPath == "" || outputPath == "-" {
		return Result{}, fmt.Errorf("backend: verilog emission requires an output path")
	}

	firtoolPath, err := resolveBinary(opts.FirtoolPath, "firtool")
	if err != nil {
		return Result{}, fmt.Errorf("backend: resolve firtool: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "hsc-firtool-*")
	if err != nil {
		return Result{}, fmt.Errorf("backend: create temp dir: %w", err)
	}
	if !opts.KeepTemps {
		defer os.RemoveAll(tempDir)
	}

	firPath := opts.DumpFIRPath
	if firPath == "" {
		firPath = filepath.Join(tempDir, "design.fir")
	} else if err := os.MkdirAll(filepath.Dir(firPath), 0o755); err != nil {
		return Result{}, fmt.Errorf("backend: create fir dump dir: %w", err)
	}

	if err := firrtl.Emit(circuit, firPath); err != nil {
		return Result{}, fmt.Errorf("backend: emit firrtl: %w", err)
	}

	if err := runFirtool(firtoolPath, firPath, outputPath); err != nil {
		return Result{}, err
	}
	return Result{MainPath: outputPath}, nil
}

func runFirtool(binary, inputPath, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("backend: create verilog output dir: %w", err)
	}
	cmd := exec.Command(binary, inputPath, "--verilog", "-o", outputPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("backend: firtool failed: %w", err)
	}
	return nil
}

func resolveBinary(explicit, fallback string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}
	path, err := exec.LookPath(fallback)
	if err != nil {
		return "", err
	}
	return path, nil
}
