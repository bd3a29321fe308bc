package geant4

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/brahimariani/geant4-api/internal/model"
)

// DataVars are the dataset environment variables a Geant4 build reads at
// startup.
var DataVars = []string{
	"G4NEUTRONHPDATA",
	"G4LEDATA",
	"G4LEVELGAMMADATA",
	"G4RADIOACTIVEDATA",
	"G4PARTICLEXSDATA",
	"G4PIIDATA",
	"G4REALSURFACEDATA",
	"G4SAIDXSDATA",
	"G4ABLADATA",
	"G4INCLDATA",
	"G4ENSDFSTATEDATA",
	"G4TENDLDATA",
}

// dataVarRules maps fragments of dataset directory names to the variable
// pointing at them. Checked in order, first match wins.
var dataVarRules = []struct {
	fragments []string
	envVar    string
}{
	{[]string{"G4NEUTRONHP", "NeutronHP"}, "G4NEUTRONHPDATA"},
	{[]string{"G4EMLOW", "G4LEDATA"}, "G4LEDATA"},
	{[]string{"PhotonEvaporation"}, "G4LEVELGAMMADATA"},
	{[]string{"RadioactiveDecay"}, "G4RADIOACTIVEDATA"},
	{[]string{"G4PARTICLEXS"}, "G4PARTICLEXSDATA"},
	{[]string{"G4PII"}, "G4PIIDATA"},
	{[]string{"RealSurface"}, "G4REALSURFACEDATA"},
	{[]string{"G4SAIDDATA"}, "G4SAIDXSDATA"},
	{[]string{"G4ABLA"}, "G4ABLADATA"},
	{[]string{"G4INCL"}, "G4INCLDATA"},
	{[]string{"G4ENSDFSTATE"}, "G4ENSDFSTATEDATA"},
	{[]string{"G4TENDL"}, "G4TENDLDATA"},
}

// ResolveDataVar maps a dataset directory name, e.g. "G4EMLOW8.5", to the
// environment variable that should point at it.
func ResolveDataVar(dirName string) (string, bool) {
	for _, r := range dataVarRules {
		for _, frag := range r.fragments {
			if strings.Contains(dirName, frag) {
				return r.envVar, true
			}
		}
	}
	return "", false
}

// Environment locates a Geant4 installation and its datasets.
type Environment struct {
	InstallPath string
	DataPath    string
}

// Setup returns the environment for a child engine process: the current
// process environment with the installation's bin on PATH, lib on
// LD_LIBRARY_PATH, and one dataset variable per directory recognized under
// DataPath. Later entries override earlier ones when passed to exec.
func (e *Environment) Setup() []string {
	env := os.Environ()

	if e.InstallPath != "" {
		path := os.Getenv("PATH")
		pathChanged := false
		if bin := filepath.Join(e.InstallPath, "bin"); dirExists(bin) {
			path = bin + string(os.PathListSeparator) + path
			pathChanged = true
		}
		if lib := filepath.Join(e.InstallPath, "lib"); dirExists(lib) {
			// Windows resolves shared libraries through PATH.
			if runtime.GOOS == "windows" {
				path = lib + string(os.PathListSeparator) + path
				pathChanged = true
			} else {
				env = append(env, "LD_LIBRARY_PATH="+lib+string(os.PathListSeparator)+os.Getenv("LD_LIBRARY_PATH"))
			}
		}
		if pathChanged {
			env = append(env, "PATH="+path)
		}
	}

	if e.DataPath != "" && dirExists(e.DataPath) {
		env = append(env, "GEANT4_DATA_DIR="+e.DataPath)

		entries, err := os.ReadDir(e.DataPath)
		if err == nil {
			for _, entry := range entries {
				if !entry.IsDir() {
					continue
				}
				if v, ok := ResolveDataVar(entry.Name()); ok {
					env = append(env, v+"="+filepath.Join(e.DataPath, entry.Name()))
				}
			}
		}
	}

	return env
}

// Verify checks the configured paths and reports what was found. Missing
// install or data paths are issues and warnings respectively; the engine
// falls back to the simulated path when verification fails.
func (e *Environment) Verify() model.VerificationResult {
	res := model.VerificationResult{
		Issues:   []string{},
		Warnings: []string{},
		Info:     map[string]any{},
	}

	if e.InstallPath == "" {
		res.Issues = append(res.Issues, "no Geant4 install path configured")
	} else if !dirExists(e.InstallPath) {
		res.Issues = append(res.Issues, fmt.Sprintf("install path does not exist: %s", e.InstallPath))
	} else {
		res.Info["install_path"] = e.InstallPath

		config := filepath.Join(e.InstallPath, "bin", "geant4-config")
		if fileExists(config) {
			res.Info["config_script"] = config
		} else {
			res.Warnings = append(res.Warnings, "geant4-config not found")
		}
	}

	if e.DataPath == "" {
		res.Warnings = append(res.Warnings, "no Geant4 data path configured")
	} else if !dirExists(e.DataPath) {
		res.Issues = append(res.Issues, fmt.Sprintf("data path does not exist: %s", e.DataPath))
	} else {
		res.Info["data_path"] = e.DataPath

		count := 0
		if entries, err := os.ReadDir(e.DataPath); err == nil {
			for _, entry := range entries {
				if entry.IsDir() {
					count++
				}
			}
		}
		res.Info["data_directories"] = count
	}

	res.Valid = len(res.Issues) == 0
	return res
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
