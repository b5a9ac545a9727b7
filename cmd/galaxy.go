package cmd

import (
	"fmt"
	"os"

	kitlog "github.com/go-kit/kit/log"
	"github.com/notargets/galpot/InputParameters"
	"github.com/notargets/galpot/potential"
	"github.com/spf13/viper"
)

const exampleFile = `
########################################
Title: "Exponential Disk"
Disks:
  - surfaceDensity: 1.
    scaleLength: 1.
    scaleHeight: 0.1 # 0 thin, > 0 exponential, < 0 isothermal
Spheroids:
  - densityNorm: 0.5
    axisRatio: 1.
    gamma: 1.
    beta: 4.
    scaleRadius: 0.5
Multipole: # optional, omitted fields are derived from the components
  numNodes: 60
EvalPoints:
  - [1., 0.]
########################################
`

func readGalaxyFile(fileName string) (gp *InputParameters.GalaxyParameters, err error) {
	var data []byte
	if len(fileName) == 0 {
		return nil, fmt.Errorf("must supply a galaxy parameter file (-I, --galaxyFile)")
	}
	if data, err = os.ReadFile(fileName); err != nil {
		return nil, err
	}
	gp = &InputParameters.GalaxyParameters{}
	if err = gp.Parse(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", fileName, err)
	}
	return
}

// loadGalaxy reads the galaxy file named by the configuration and builds its
// potential, exiting with an example file on a missing file name
func loadGalaxy() (gp *InputParameters.GalaxyParameters, pot *potential.Composite) {
	var (
		err    error
		logger kitlog.Logger
	)
	if gp, err = readGalaxyFile(viper.GetString("galaxyFile")); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		fmt.Printf("Example File:%s\n", exampleFile)
		os.Exit(1)
	}
	gp.Print()
	if viper.GetBool("verbose") {
		logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
		logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	}
	if pot, err = gp.CreatePotential(logger); err != nil {
		panic(err)
	}
	return
}
