package geant4

import (
	"strings"
	"testing"

	"github.com/brahimariani/geant4-api/internal/model"
)

func fullPhysics() *model.PhysicsConfig {
	cuts := model.ProductionCut{Gamma: 0.1, Electron: 0.1, Positron: 0.1, Proton: 0.5}
	phys := &model.PhysicsConfig{
		PhysicsList:    model.PhysicsQGSPBic,
		DefaultCut:     0.7,
		ProductionCuts: &cuts,
	}
	phys.ApplyDefaults()
	return phys
}

func gammaSource() *model.ParticleSource {
	src := &model.ParticleSource{
		Name:     "beam",
		Particle: model.ParticleGamma,
		Energy:   model.EnergyConfig{Distribution: model.EnergyMono, Value: 1.0},
		Position: model.PositionConfig{
			Distribution: model.PositionPoint,
			Center:       model.Vector3D{Z: -100},
		},
	}
	src.ApplyDefaults()
	return src
}

func TestGenerateMacro_Sections(t *testing.T) {
	cfg := model.SimulationConfig{Name: "test", NumEvents: 500, VerboseLevel: 1, TrackingVerbose: 2}
	macro := GenerateMacro(fullPhysics(), gammaSource(), cfg, "geometry.gdml")

	wantLines := []string{
		"/control/verbose 1",
		"/run/verbose 1",
		"/event/verbose 1",
		"/tracking/verbose 2",
		"/persistency/gdml/read geometry.gdml",
		"/run/setCut 0.7 mm",
		"/run/setCutForAGivenParticle gamma 0.1000 mm",
		"/run/setCutForAGivenParticle e- 0.1000 mm",
		"/run/setCutForAGivenParticle e+ 0.1000 mm",
		"/run/setCutForAGivenParticle proton 0.5000 mm",
		"/run/initialize",
		"/gps/particle gamma",
		"/gps/number 1",
		"/gps/ene/type Mono",
		"/gps/ene/mono 1 MeV",
		"/gps/pos/type Point",
		"/gps/pos/centre 0 0 -100 mm",
		"/gps/direction 0 0 1",
		"/run/beamOn 500",
	}
	for _, line := range wantLines {
		if !strings.Contains(macro, line+"\n") {
			t.Errorf("macro missing line %q\n%s", line, macro)
		}
	}
}

// Cuts must come before /run/initialize, and the source block before
// /run/beamOn, or Geant4 silently ignores them.
func TestGenerateMacro_CommandOrder(t *testing.T) {
	cfg := model.SimulationConfig{Name: "test", NumEvents: 100}
	macro := GenerateMacro(fullPhysics(), gammaSource(), cfg, "")

	cut := strings.Index(macro, "/run/setCut ")
	initialize := strings.Index(macro, "/run/initialize")
	particle := strings.Index(macro, "/gps/particle")
	beamOn := strings.Index(macro, "/run/beamOn")

	if cut == -1 || initialize == -1 || particle == -1 || beamOn == -1 {
		t.Fatalf("macro missing a required section:\n%s", macro)
	}
	if !(cut < initialize && initialize < particle && particle < beamOn) {
		t.Errorf("command order wrong: setCut@%d initialize@%d particle@%d beamOn@%d",
			cut, initialize, particle, beamOn)
	}
}

func TestGenerateMacro_OmittedSections(t *testing.T) {
	cfg := model.SimulationConfig{Name: "bare", NumEvents: 10}
	macro := GenerateMacro(nil, nil, cfg, "")

	if strings.Contains(macro, "/gps/") {
		t.Error("macro contains GPS commands without a source")
	}
	if strings.Contains(macro, "/run/setCut") {
		t.Error("macro contains cut commands without physics")
	}
	if strings.Contains(macro, "/persistency/gdml/read") {
		t.Error("macro loads GDML without a geometry file")
	}
	if !strings.Contains(macro, "/run/beamOn 10\n") {
		t.Error("macro missing beamOn")
	}
}

func TestGenerateMacro_EnergyDistributions(t *testing.T) {
	sigma := 0.1
	lo, hi := 0.5, 10.0

	gauss := gammaSource()
	gauss.Energy = model.EnergyConfig{Distribution: model.EnergyGaussian, Value: 6.0, Sigma: &sigma}
	macro := GenerateMacro(nil, gauss, model.SimulationConfig{NumEvents: 1}, "")
	for _, line := range []string{"/gps/ene/type Gauss", "/gps/ene/mono 6 MeV", "/gps/ene/sigma 0.1 MeV"} {
		if !strings.Contains(macro, line) {
			t.Errorf("gaussian macro missing %q", line)
		}
	}

	flat := gammaSource()
	flat.Energy = model.EnergyConfig{Distribution: model.EnergyFlat, Value: 1, MinEnergy: &lo, MaxEnergy: &hi}
	macro = GenerateMacro(nil, flat, model.SimulationConfig{NumEvents: 1}, "")
	for _, line := range []string{"/gps/ene/type Lin", "/gps/ene/min 0.5 MeV", "/gps/ene/max 10 MeV", "/gps/ene/gradient 0", "/gps/ene/intercept 1"} {
		if !strings.Contains(macro, line) {
			t.Errorf("flat macro missing %q", line)
		}
	}
}

func TestGenerateMacro_AngularDistributions(t *testing.T) {
	iso := gammaSource()
	iso.Direction = model.DirectionConfig{Distribution: model.AngularIsotropic}
	macro := GenerateMacro(nil, iso, model.SimulationConfig{NumEvents: 1}, "")
	if !strings.Contains(macro, "/gps/ang/type iso") {
		t.Error("isotropic macro missing /gps/ang/type iso")
	}
	if strings.Contains(macro, "/gps/direction") {
		t.Error("isotropic macro still has a fixed direction")
	}

	angle := 15.0
	cone := gammaSource()
	cone.Direction = model.DirectionConfig{
		Distribution: model.AngularCone,
		Direction:    model.Vector3D{Z: 100},
		ConeAngle:    &angle,
	}
	macro = GenerateMacro(nil, cone, model.SimulationConfig{NumEvents: 1}, "")
	for _, line := range []string{"/gps/ang/type focused", "/gps/ang/focuspoint 0 0 100 mm", "/gps/ang/maxtheta 15 deg"} {
		if !strings.Contains(macro, line) {
			t.Errorf("cone macro missing %q", line)
		}
	}
}

func TestGenerateMacro_PlaneSource(t *testing.T) {
	hx, hy := 5.0, 7.5
	src := gammaSource()
	src.Position = model.PositionConfig{
		Distribution: model.PositionPlane,
		Center:       model.Vector3D{Z: -200},
		HalfX:        &hx,
		HalfY:        &hy,
	}
	macro := GenerateMacro(nil, src, model.SimulationConfig{NumEvents: 1}, "")
	for _, line := range []string{
		"/gps/pos/type Plane",
		"/gps/pos/shape Rectangle",
		"/gps/pos/centre 0 0 -200 mm",
		"/gps/pos/halfx 5 mm",
		"/gps/pos/halfy 7.5 mm",
	} {
		if !strings.Contains(macro, line) {
			t.Errorf("plane macro missing %q", line)
		}
	}
}

// Two renders of the same configuration differ only in the generation
// timestamp comment.
func TestGenerateMacro_Deterministic(t *testing.T) {
	cfg := model.SimulationConfig{Name: "det", NumEvents: 42}
	a := stripTimestamp(GenerateMacro(fullPhysics(), gammaSource(), cfg, "geometry.gdml"))
	b := stripTimestamp(GenerateMacro(fullPhysics(), gammaSource(), cfg, "geometry.gdml"))
	if a != b {
		t.Errorf("macro not deterministic:\n--- first\n%s\n--- second\n%s", a, b)
	}
}

func stripTimestamp(macro string) string {
	lines := strings.Split(macro, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, "# Generated:") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func TestPhysicsMacroCommands(t *testing.T) {
	cmds := PhysicsMacroCommands(fullPhysics())
	if len(cmds) == 0 {
		t.Fatal("no commands returned")
	}
	joined := strings.Join(cmds, "\n")
	if !strings.Contains(joined, "/run/setCut 0.7 mm") {
		t.Errorf("commands missing default cut:\n%s", joined)
	}
}

func TestGPSCommands(t *testing.T) {
	cmds := GPSCommands(gammaSource())
	joined := strings.Join(cmds, "\n")
	for _, line := range []string{"/gps/particle gamma", "/gps/ene/mono 1 MeV", "/gps/pos/centre 0 0 -100 mm"} {
		if !strings.Contains(joined, line) {
			t.Errorf("GPS commands missing %q:\n%s", line, joined)
		}
	}
}
