package geant4

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brahimariani/geant4-api/internal/model"
)

// MacroFileName is the control script written into each job's work dir.
const MacroFileName = "run.mac"

// GenerateMacro renders the control script for one run. Output is
// deterministic for identical inputs apart from the timestamp header line.
// Nil physics or source configs simply omit their section.
func GenerateMacro(phys *model.PhysicsConfig, src *model.ParticleSource, cfg model.SimulationConfig, gdmlFile string) string {
	var b strings.Builder

	b.WriteString("# ============================================\n")
	b.WriteString("# Geant4 Macro - Auto-generated by Geant4 API\n")
	fmt.Fprintf(&b, "# Generated: %s\n", time.Now().UTC().Format(time.RFC3339))
	b.WriteString("# ============================================\n")
	b.WriteString("\n")

	b.WriteString("# Verbosity\n")
	fmt.Fprintf(&b, "/control/verbose %d\n", cfg.VerboseLevel)
	fmt.Fprintf(&b, "/run/verbose %d\n", cfg.VerboseLevel)
	fmt.Fprintf(&b, "/event/verbose %d\n", cfg.VerboseLevel)
	fmt.Fprintf(&b, "/tracking/verbose %d\n", cfg.TrackingVerbose)
	b.WriteString("\n")

	if gdmlFile != "" {
		b.WriteString("# Geometry from GDML\n")
		fmt.Fprintf(&b, "/persistency/gdml/read %s\n", gdmlFile)
		b.WriteString("\n")
	}

	if phys != nil {
		writePhysicsCommands(&b, phys)
	}

	b.WriteString("# Initialize\n")
	b.WriteString("/run/initialize\n")
	b.WriteString("\n")

	if src != nil {
		writeSourceCommands(&b, src)
	}

	b.WriteString("# Output settings\n")
	b.WriteString("# /analysis/setFileName output\n")
	b.WriteString("# /analysis/h1/set 1 100 0. 10. MeV\n")
	b.WriteString("\n")

	b.WriteString("# Start simulation\n")
	fmt.Fprintf(&b, "/run/beamOn %d\n", cfg.NumEvents)

	return b.String()
}

func writePhysicsCommands(b *strings.Builder, phys *model.PhysicsConfig) {
	b.WriteString("# Physics configuration\n")
	fmt.Fprintf(b, "# Physics list: %s\n", phys.PhysicsList)
	fmt.Fprintf(b, "/run/setCut %s mm\n", fnum(phys.DefaultCut))

	if phys.ProductionCuts != nil {
		cuts := phys.ProductionCuts
		fmt.Fprintf(b, "/run/setCutForAGivenParticle gamma %.4f mm\n", cuts.Gamma)
		fmt.Fprintf(b, "/run/setCutForAGivenParticle e- %.4f mm\n", cuts.Electron)
		fmt.Fprintf(b, "/run/setCutForAGivenParticle e+ %.4f mm\n", cuts.Positron)
		fmt.Fprintf(b, "/run/setCutForAGivenParticle proton %.4f mm\n", cuts.Proton)
	}

	for _, rc := range phys.RegionCuts {
		fmt.Fprintf(b, "# Region: %s\n", rc.RegionName)
		fmt.Fprintf(b, "/run/setCutForRegion %s %s mm\n", rc.RegionName, fnum(rc.Cuts.Gamma))
	}

	for _, sl := range phys.StepLimiters {
		for _, vol := range sl.Volumes {
			fmt.Fprintf(b, "/process/setMaxStep %s mm %s\n", fnum(sl.MaxStep), vol)
		}
	}

	b.WriteString("\n")
}

func writeSourceCommands(b *strings.Builder, src *model.ParticleSource) {
	b.WriteString("# Particle source configuration\n")
	fmt.Fprintf(b, "# Source: %s\n", src.Name)
	b.WriteString("\n")

	b.WriteString("# Particle type\n")
	fmt.Fprintf(b, "/gps/particle %s\n", src.Particle)
	fmt.Fprintf(b, "/gps/number %d\n", src.NumberOfParticles)
	b.WriteString("\n")

	writeEnergyCommands(b, src.Energy)
	writePositionCommands(b, src.Position)
	writeDirectionCommands(b, src.Direction)
}

func writeEnergyCommands(b *strings.Builder, energy model.EnergyConfig) {
	b.WriteString("# Energy\n")

	switch energy.Distribution {
	case model.EnergyMono:
		b.WriteString("/gps/ene/type Mono\n")
		fmt.Fprintf(b, "/gps/ene/mono %s MeV\n", fnum(energy.Value))

	case model.EnergyGaussian:
		b.WriteString("/gps/ene/type Gauss\n")
		fmt.Fprintf(b, "/gps/ene/mono %s MeV\n", fnum(energy.Value))
		if energy.Sigma != nil {
			fmt.Fprintf(b, "/gps/ene/sigma %s MeV\n", fnum(*energy.Sigma))
		}

	case model.EnergyFlat:
		b.WriteString("/gps/ene/type Lin\n")
		if energy.MinEnergy != nil && energy.MaxEnergy != nil {
			fmt.Fprintf(b, "/gps/ene/min %s MeV\n", fnum(*energy.MinEnergy))
			fmt.Fprintf(b, "/gps/ene/max %s MeV\n", fnum(*energy.MaxEnergy))
		}
		b.WriteString("/gps/ene/gradient 0\n")
		b.WriteString("/gps/ene/intercept 1\n")

	case model.EnergyExponential:
		b.WriteString("/gps/ene/type Exp\n")
		fmt.Fprintf(b, "/gps/ene/ezero %s MeV\n", fnum(energy.Value))

	case model.EnergyPowerLaw:
		b.WriteString("/gps/ene/type Pow\n")
		b.WriteString("/gps/ene/alpha -2\n")
		if energy.MinEnergy != nil && energy.MaxEnergy != nil {
			fmt.Fprintf(b, "/gps/ene/min %s MeV\n", fnum(*energy.MinEnergy))
			fmt.Fprintf(b, "/gps/ene/max %s MeV\n", fnum(*energy.MaxEnergy))
		}
	}

	b.WriteString("\n")
}

func writePositionCommands(b *strings.Builder, pos model.PositionConfig) {
	b.WriteString("# Position\n")
	c := pos.Center

	switch pos.Distribution {
	case model.PositionPoint:
		b.WriteString("/gps/pos/type Point\n")
		fmt.Fprintf(b, "/gps/pos/centre %s %s %s mm\n", fnum(c.X), fnum(c.Y), fnum(c.Z))

	case model.PositionPlane:
		b.WriteString("/gps/pos/type Plane\n")
		b.WriteString("/gps/pos/shape Rectangle\n")
		fmt.Fprintf(b, "/gps/pos/centre %s %s %s mm\n", fnum(c.X), fnum(c.Y), fnum(c.Z))
		if pos.HalfX != nil && pos.HalfY != nil {
			fmt.Fprintf(b, "/gps/pos/halfx %s mm\n", fnum(*pos.HalfX))
			fmt.Fprintf(b, "/gps/pos/halfy %s mm\n", fnum(*pos.HalfY))
		}

	case model.PositionSurface:
		b.WriteString("/gps/pos/type Surface\n")
		if pos.Radius != nil {
			b.WriteString("/gps/pos/shape Sphere\n")
			fmt.Fprintf(b, "/gps/pos/radius %s mm\n", fnum(*pos.Radius))
		}
		fmt.Fprintf(b, "/gps/pos/centre %s %s %s mm\n", fnum(c.X), fnum(c.Y), fnum(c.Z))

	case model.PositionVolume:
		b.WriteString("/gps/pos/type Volume\n")
		if pos.Radius != nil {
			b.WriteString("/gps/pos/shape Sphere\n")
			fmt.Fprintf(b, "/gps/pos/radius %s mm\n", fnum(*pos.Radius))
		} else if pos.HalfX != nil && pos.HalfY != nil && pos.HalfZ != nil {
			b.WriteString("/gps/pos/shape Para\n")
			fmt.Fprintf(b, "/gps/pos/halfx %s mm\n", fnum(*pos.HalfX))
			fmt.Fprintf(b, "/gps/pos/halfy %s mm\n", fnum(*pos.HalfY))
			fmt.Fprintf(b, "/gps/pos/halfz %s mm\n", fnum(*pos.HalfZ))
		}
		fmt.Fprintf(b, "/gps/pos/centre %s %s %s mm\n", fnum(c.X), fnum(c.Y), fnum(c.Z))
	}

	b.WriteString("\n")
}

func writeDirectionCommands(b *strings.Builder, dir model.DirectionConfig) {
	b.WriteString("# Direction\n")

	switch dir.Distribution {
	case model.AngularDirected:
		d := dir.Direction
		fmt.Fprintf(b, "/gps/direction %s %s %s\n", fnum(d.X), fnum(d.Y), fnum(d.Z))

	case model.AngularIsotropic:
		b.WriteString("/gps/ang/type iso\n")

	case model.AngularCosine:
		b.WriteString("/gps/ang/type cos\n")

	case model.AngularCone:
		b.WriteString("/gps/ang/type focused\n")
		d := dir.Direction
		fmt.Fprintf(b, "/gps/ang/focuspoint %s %s %s mm\n", fnum(d.X), fnum(d.Y), fnum(d.Z))
		if dir.ConeAngle != nil {
			fmt.Fprintf(b, "/gps/ang/maxtheta %s deg\n", fnum(*dir.ConeAngle))
		}
	}

	b.WriteString("\n")
}

// PhysicsMacroCommands renders the physics section alone as a command
// list, for the macro export endpoint.
func PhysicsMacroCommands(phys *model.PhysicsConfig) []string {
	var b strings.Builder
	writePhysicsCommands(&b, phys)
	return commandLines(b.String())
}

// GPSCommands renders the particle source section alone as a GPS command
// list.
func GPSCommands(src *model.ParticleSource) []string {
	var b strings.Builder
	writeSourceCommands(&b, src)
	return commandLines(b.String())
}

// commandLines splits rendered macro text into lines, keeping comments and
// interior blanks but dropping the trailing newline.
func commandLines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

// fnum renders a float without a trailing ".0" so macro and GDML output
// stays compact.
func fnum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
