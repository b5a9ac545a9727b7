package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
	kitlog "github.com/go-kit/kit/log"
	"github.com/notargets/galpot/potential"
)

// Parameters obtained from the YAML galaxy file
type GalaxyParameters struct {
	Title      string                     `json:"Title"`
	Disks      []potential.DiskParams     `json:"Disks"`
	Spheroids  []potential.SpheroidParams `json:"Spheroids"`
	Multipole  potential.MultipoleParams  `json:"Multipole"`
	EvalPoints [][2]float64               `json:"EvalPoints"` // (R, z) pairs
}

func (gp *GalaxyParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, gp)
}

// CreatePotential builds the galaxy potential, logging multipole
// construction to logger when it is not nil
func (gp *GalaxyParameters) CreatePotential(logger kitlog.Logger) (*potential.Composite, error) {
	mp := gp.Multipole
	mp.Logger = logger
	return potential.CreateGalaxyPotential(gp.Disks, gp.Spheroids, mp)
}

func (gp *GalaxyParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", gp.Title)
	for i, d := range gp.Disks {
		fmt.Printf("Disks[%d] = Sigma0 %8.5g, Rd %8.5g, h %8.5g, R0 %8.5g, eps %8.5g\n",
			i, d.SurfaceDensity, d.ScaleLength, d.ScaleHeight, d.InnerCutoffRadius, d.ModulationAmplitude)
	}
	for i, s := range gp.Spheroids {
		fmt.Printf("Spheroids[%d] = rho0 %8.5g, q %8.5g, gamma %8.5g, beta %8.5g, r0 %8.5g, rt %8.5g\n",
			i, s.DensityNorm, s.AxisRatio, s.Gamma, s.Beta, s.ScaleRadius, s.OuterCutoffRadius)
	}
	mp := gp.Multipole
	fmt.Printf("[%8.5g, %8.5g]\t= Multipole Radial Extent\n", mp.RMin, mp.RMax)
	fmt.Printf("[%d x %d]\t\t= Multipole Nodes\n", mp.NumNodes, mp.NumAngularNodes)
	fmt.Printf("[%d]\t\t\t= Multipole LMax\n", mp.LMax)
	fmt.Printf("%8.5f\t\t= Multipole Inner Slope\n", mp.Gamma)
	fmt.Printf("%8.5f\t\t= Multipole Outer Slope\n", mp.Beta)
}
