package model

// Simulation status
type SimulationStatus string

const (
	StatusPending      SimulationStatus = "pending"
	StatusQueued       SimulationStatus = "queued"
	StatusInitializing SimulationStatus = "initializing"
	StatusRunning      SimulationStatus = "running"
	StatusPaused       SimulationStatus = "paused"
	StatusCompleted    SimulationStatus = "completed"
	StatusFailed       SimulationStatus = "failed"
	StatusCancelled    SimulationStatus = "cancelled"
)

var ValidSimulationStatuses = []SimulationStatus{
	StatusPending, StatusQueued, StatusInitializing, StatusRunning,
	StatusPaused, StatusCompleted, StatusFailed, StatusCancelled,
}

// Terminal reports whether no further lifecycle transitions are possible.
func (s SimulationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Simulation run modes
type SimulationMode string

const (
	ModeBatch         SimulationMode = "batch"
	ModeInteractive   SimulationMode = "interactive"
	ModeVisualization SimulationMode = "visualization"
)

// Output formats for persisted results
type OutputFormat string

const (
	OutputJSON  OutputFormat = "json"
	OutputCSV   OutputFormat = "csv"
	OutputROOT  OutputFormat = "root"
	OutputHDF5  OutputFormat = "hdf5"
	OutputNumpy OutputFormat = "numpy"
)

// Particle types known to the engine (Geant4 naming)
type ParticleType string

const (
	ParticleElectron        ParticleType = "e-"
	ParticlePositron        ParticleType = "e+"
	ParticleMuMinus         ParticleType = "mu-"
	ParticleMuPlus          ParticleType = "mu+"
	ParticleGamma           ParticleType = "gamma"
	ParticleOptical         ParticleType = "opticalphoton"
	ParticleProton          ParticleType = "proton"
	ParticleNeutron         ParticleType = "neutron"
	ParticlePiPlus          ParticleType = "pi+"
	ParticlePiMinus         ParticleType = "pi-"
	ParticlePiZero          ParticleType = "pi0"
	ParticleKaonPlus        ParticleType = "kaon+"
	ParticleKaonMinus       ParticleType = "kaon-"
	ParticleAlpha           ParticleType = "alpha"
	ParticleDeuteron        ParticleType = "deuteron"
	ParticleTriton          ParticleType = "triton"
	ParticleHe3             ParticleType = "He3"
	ParticleGenericIon      ParticleType = "GenericIon"
	ParticleGeantino        ParticleType = "geantino"
	ParticleChargedGeantino ParticleType = "chargedgeantino"
)

var ValidParticleTypes = []ParticleType{
	ParticleElectron, ParticlePositron, ParticleMuMinus, ParticleMuPlus,
	ParticleGamma, ParticleOptical, ParticleProton, ParticleNeutron,
	ParticlePiPlus, ParticlePiMinus, ParticlePiZero, ParticleKaonPlus,
	ParticleKaonMinus, ParticleAlpha, ParticleDeuteron, ParticleTriton,
	ParticleHe3, ParticleGenericIon, ParticleGeantino, ParticleChargedGeantino,
}

// Energy distributions
type EnergyDistribution string

const (
	EnergyMono        EnergyDistribution = "mono"
	EnergyGaussian    EnergyDistribution = "gaussian"
	EnergyFlat        EnergyDistribution = "flat"
	EnergyExponential EnergyDistribution = "exponential"
	EnergyPowerLaw    EnergyDistribution = "power_law"
	EnergyUserDefined EnergyDistribution = "user_defined"
)

// Angular distributions
type AngularDistribution string

const (
	AngularDirected    AngularDistribution = "directed"
	AngularIsotropic   AngularDistribution = "isotropic"
	AngularCosine      AngularDistribution = "cosine"
	AngularCone        AngularDistribution = "cone"
	AngularUserDefined AngularDistribution = "user_defined"
)

// Position distributions
type PositionDistribution string

const (
	PositionPoint   PositionDistribution = "point"
	PositionPlane   PositionDistribution = "plane"
	PositionSurface PositionDistribution = "surface"
	PositionVolume  PositionDistribution = "volume"
)

// Solid shapes
type SolidType string

const (
	SolidBox      SolidType = "box"
	SolidCylinder SolidType = "cylinder"
	SolidSphere   SolidType = "sphere"
	SolidCone     SolidType = "cone"
)

// Reference physics lists
type PhysicsListType string

const (
	PhysicsFTFPBert      PhysicsListType = "FTFP_BERT"
	PhysicsFTFPBertHP    PhysicsListType = "FTFP_BERT_HP"
	PhysicsQGSPBert      PhysicsListType = "QGSP_BERT"
	PhysicsQGSPBertHP    PhysicsListType = "QGSP_BERT_HP"
	PhysicsQGSPBic       PhysicsListType = "QGSP_BIC"
	PhysicsQGSPBicHP     PhysicsListType = "QGSP_BIC_HP"
	PhysicsShielding     PhysicsListType = "Shielding"
	PhysicsShieldingLEND PhysicsListType = "ShieldingLEND"
	PhysicsQGSPBicEMY    PhysicsListType = "QGSP_BIC_EMY"
	PhysicsLivermore     PhysicsListType = "G4EmLivermorePhysics"
	PhysicsPenelope      PhysicsListType = "G4EmPenelopePhysics"
	PhysicsCustom        PhysicsListType = "Custom"
)

var ValidPhysicsLists = []PhysicsListType{
	PhysicsFTFPBert, PhysicsFTFPBertHP, PhysicsQGSPBert, PhysicsQGSPBertHP,
	PhysicsQGSPBic, PhysicsQGSPBicHP, PhysicsShielding, PhysicsShieldingLEND,
	PhysicsQGSPBicEMY, PhysicsLivermore, PhysicsPenelope, PhysicsCustom,
}

// HighPrecision reports whether the list includes high precision neutron
// transport, needed for accurate radioactive decay chains.
func (p PhysicsListType) HighPrecision() bool {
	switch p {
	case PhysicsFTFPBertHP, PhysicsQGSPBertHP, PhysicsQGSPBicHP, PhysicsShielding, PhysicsShieldingLEND:
		return true
	}
	return false
}

// Electromagnetic physics options
type EMPhysicsOption string

const (
	EMStandard  EMPhysicsOption = "standard"
	EMOption1   EMPhysicsOption = "option1"
	EMOption2   EMPhysicsOption = "option2"
	EMOption3   EMPhysicsOption = "option3"
	EMOption4   EMPhysicsOption = "option4"
	EMLivermore EMPhysicsOption = "livermore"
	EMPenelope  EMPhysicsOption = "penelope"
	EMDNA       EMPhysicsOption = "dna"
)

var ValidEMOptions = []EMPhysicsOption{
	EMStandard, EMOption1, EMOption2, EMOption3, EMOption4,
	EMLivermore, EMPenelope, EMDNA,
}

// NIST material names commonly used in detector definitions. The material
// field itself is an open string so any valid Geant4 material works;
// this list backs validation warnings only.
var KnownMaterials = []string{
	"G4_Galactic", "G4_AIR", "G4_WATER", "G4_Al", "G4_Cu", "G4_Pb",
	"G4_Fe", "G4_W", "G4_CONCRETE", "G4_TISSUE_SOFT_ICRP",
	"G4_BONE_COMPACT_ICRU", "G4_Si", "G4_Ge", "G4_SODIUM_IODIDE",
	"G4_BGO", "G4_CESIUM_IODIDE", "G4_PLASTIC_SC_VINYLTOLUENE",
}
