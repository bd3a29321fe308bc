package model

// Vector3D is a position or offset in millimeters.
type Vector3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Rotation3D holds rotation angles around each axis in degrees.
type Rotation3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Solid describes one primitive shape. Type selects which dimension fields
// apply; lengths are millimeters, angles degrees.
type Solid struct {
	Type SolidType `json:"type" validate:"required"`

	// Box half-lengths.
	HalfX float64 `json:"half_x,omitempty"`
	HalfY float64 `json:"half_y,omitempty"`

	// Shared by box, cylinder and cone.
	HalfZ float64 `json:"half_z,omitempty"`

	// Cylinder and sphere radii.
	InnerRadius float64 `json:"inner_radius,omitempty"`
	OuterRadius float64 `json:"outer_radius,omitempty"`

	// Cylinder and sphere angular coverage.
	StartPhi float64 `json:"start_phi,omitempty"`
	DeltaPhi float64 `json:"delta_phi,omitempty"`

	// Sphere polar coverage.
	StartTheta float64 `json:"start_theta,omitempty"`
	DeltaTheta float64 `json:"delta_theta,omitempty"`

	// Cone radii at -z (1) and +z (2).
	InnerRadius1 float64 `json:"inner_radius_1,omitempty"`
	OuterRadius1 float64 `json:"outer_radius_1,omitempty"`
	InnerRadius2 float64 `json:"inner_radius_2,omitempty"`
	OuterRadius2 float64 `json:"outer_radius_2,omitempty"`
}

// ApplyDefaults fills the full angular coverage used when a request omits it.
func (s *Solid) ApplyDefaults() {
	switch s.Type {
	case SolidCylinder:
		if s.DeltaPhi == 0 {
			s.DeltaPhi = 360
		}
	case SolidSphere:
		if s.DeltaPhi == 0 {
			s.DeltaPhi = 360
		}
		if s.DeltaTheta == 0 {
			s.DeltaTheta = 180
		}
	}
}

// Volume is a placed solid, optionally holding child volumes positioned
// relative to it.
type Volume struct {
	Name        string     `json:"name" validate:"required,min=1,max=100"`
	Solid       Solid      `json:"solid" validate:"required"`
	Material    string     `json:"material" validate:"required"`
	Position    Vector3D   `json:"position"`
	Rotation    Rotation3D `json:"rotation"`
	IsSensitive bool       `json:"is_sensitive"`
	Color       []float64  `json:"color,omitempty"`
	Children    []Volume   `json:"children,omitempty"`
}

// WorldVolume is the box enclosing the whole setup.
type WorldVolume struct {
	HalfX    float64 `json:"half_x"`
	HalfY    float64 `json:"half_y"`
	HalfZ    float64 `json:"half_z"`
	Material string  `json:"material"`
}

// DefaultWorld is a 2 m air cube, large enough for the bundled templates.
func DefaultWorld() WorldVolume {
	return WorldVolume{HalfX: 1000, HalfY: 1000, HalfZ: 1000, Material: "G4_AIR"}
}

// DetectorGeometry is a complete named setup: a world plus the volumes
// placed inside it.
type DetectorGeometry struct {
	Name        string      `json:"name" validate:"required,min=1,max=100"`
	Description string      `json:"description,omitempty"`
	World       WorldVolume `json:"world"`
	Volumes     []Volume    `json:"volumes"`
}

// ApplyDefaults fills the world volume and solid angles where omitted.
func (g *DetectorGeometry) ApplyDefaults() {
	if g.World == (WorldVolume{}) {
		g.World = DefaultWorld()
	}
	if g.World.Material == "" {
		g.World.Material = "G4_AIR"
	}
	var walk func(vols []Volume)
	walk = func(vols []Volume) {
		for i := range vols {
			vols[i].Solid.ApplyDefaults()
			walk(vols[i].Children)
		}
	}
	walk(g.Volumes)
}

// SensitiveVolumes lists the names of all volumes flagged as sensitive
// detectors, depth first.
func (g *DetectorGeometry) SensitiveVolumes() []string {
	var names []string
	var walk func(vols []Volume)
	walk = func(vols []Volume) {
		for i := range vols {
			if vols[i].IsSensitive {
				names = append(names, vols[i].Name)
			}
			walk(vols[i].Children)
		}
	}
	walk(g.Volumes)
	return names
}

// MaterialInfo describes one predefined material for the geometry API.
type MaterialInfo struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description"`
}
