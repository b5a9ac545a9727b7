package cmd

import (
	"fmt"

	"github.com/notargets/galpot/coord"
	"github.com/notargets/galpot/potential"
	"github.com/spf13/cobra"
)

// EvalCmd represents the eval command
var EvalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate the potential, its derivatives and the density at points",
	Long: `
Evaluates the galaxy potential at the (R, z) points listed under EvalPoints in
the galaxy file, or at the single point given with --R and --z.

galpot eval -I galaxy.yaml --R 8 --z 0.1`,
	Run: func(cmd *cobra.Command, args []string) {
		gp, pot := loadGalaxy()
		points := gp.EvalPoints
		if cmd.Flags().Changed("R") || cmd.Flags().Changed("z") {
			R, _ := cmd.Flags().GetFloat64("R")
			z, _ := cmd.Flags().GetFloat64("z")
			points = [][2]float64{{R, z}}
		}
		printEvalRows(evalPoints(pot, points))
	},
}

func init() {
	rootCmd.AddCommand(EvalCmd)
	EvalCmd.Flags().Float64("R", 0, "cylindrical radius of the evaluation point")
	EvalCmd.Flags().Float64("z", 0, "height of the evaluation point")
}

type evalRow struct {
	Pos  coord.PosCyl
	Phi  float64
	Grad coord.GradCyl
	Hess coord.HessCyl
	Rho  float64
}

func evalPoints(pot potential.Potential, points [][2]float64) (rows []evalRow) {
	rows = make([]evalRow, len(points))
	for i, p := range points {
		row := &rows[i]
		row.Pos = coord.PosCyl{R: p[0], Z: p[1]}
		row.Phi = pot.Eval(row.Pos, &row.Grad, &row.Hess)
		row.Rho = pot.Density(row.Pos)
	}
	return
}

func printEvalRows(rows []evalRow) {
	fmt.Printf("%10s %10s %14s %14s %14s %14s %14s %14s %14s\n",
		"R", "z", "Phi", "dPhi/dR", "dPhi/dz", "d2Phi/dR2", "d2Phi/dz2", "d2Phi/dRdz", "rho")
	for _, r := range rows {
		fmt.Printf("%10.4g %10.4g %14.7g %14.7g %14.7g %14.7g %14.7g %14.7g %14.7g\n",
			r.Pos.R, r.Pos.Z, r.Phi, r.Grad.DR, r.Grad.Dz, r.Hess.DR2, r.Hess.Dz2, r.Hess.DRdz, r.Rho)
	}
}
