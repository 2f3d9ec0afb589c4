package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/wahba/linalg"
	"go.viam.com/wahba/spatialmath"
	"go.viam.com/wahba/wahba"
)

type matrixRequest struct {
	// Matrices are row-major 4x4 cost matrices.
	Matrices [][]float64 `json:"matrices"`
	// Upstream holds one quaternion gradient per matrix, gradient command only.
	Upstream [][linalg.Dim]float64 `json:"upstream,omitempty"`
}

type observationRequest struct {
	Observations []struct {
		Body      [3]float64 `json:"body"`
		Reference [3]float64 `json:"reference"`
		Weight    float64    `json:"weight"`
	} `json:"observations"`
}

type solveResult struct {
	Index      int                    `json:"index"`
	Quaternion *[linalg.Dim]float64   `json:"quaternion,omitempty"`
	AxisAngle  *spatialmath.AxisAngle `json:"axis_angle,omitempty"`
	Multiplier float64                `json:"multiplier"`
	Cost       float64                `json:"cost"`
	EigenGap   float64                `json:"eigen_gap"`
	Gradient   []float64              `json:"gradient,omitempty"`
	CostMatrix []float64              `json:"cost_matrix,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

func newSolveResult(i int, sol *wahba.Solution) solveResult {
	q := spatialmath.QuatToArray(sol.Quaternion)
	aa := spatialmath.QuatToAxisAngle(sol.Quaternion)
	return solveResult{
		Index:      i,
		Quaternion: &q,
		AxisAngle:  &aa,
		Multiplier: sol.Multiplier,
		Cost:       sol.Cost,
		EigenGap:   sol.EigenGap,
	}
}

func (a *app) solveAction(c *cli.Context) error {
	var req matrixRequest
	if err := readRequest(c, &req); err != nil {
		return err
	}
	batch, err := req.costMatrices(c.Bool(flagSingle))
	if err != nil {
		return err
	}

	forwards, batchErr := a.solver.SolveBatch(c.Context, batch)
	if forwards == nil && batchErr != nil {
		return batchErr
	}
	results := make([]solveResult, len(forwards))
	for i, f := range forwards {
		if f == nil {
			results[i] = solveResult{Index: i, Error: elementError(batchErr, i).Error()}
			continue
		}
		sol := f.Solution()
		results[i] = newSolveResult(i, &sol)
	}
	if err := printResults(c, results, false); err != nil {
		return err
	}
	return batchErr
}

func (a *app) gradientAction(c *cli.Context) error {
	var req matrixRequest
	if err := readRequest(c, &req); err != nil {
		return err
	}
	single := c.Bool(flagSingle)
	batch, err := req.costMatrices(single)
	if err != nil {
		return err
	}
	if len(req.Upstream) != len(batch) {
		return errors.Wrapf(wahba.ErrInputValidation, "got %d matrices but %d upstream gradients",
			len(batch), len(req.Upstream))
	}

	forwards, solveErr := a.solver.SolveBatch(c.Context, batch)
	if forwards == nil && solveErr != nil {
		return solveErr
	}
	// solutions are read before the backward pass consumes the forward results
	results := make([]solveResult, len(forwards))
	for i, f := range forwards {
		if f == nil {
			results[i] = solveResult{Index: i, Error: elementError(solveErr, i).Error()}
			continue
		}
		sol := f.Solution()
		results[i] = newSolveResult(i, &sol)
	}

	grads, backwardErr := a.solver.BackwardBatch(c.Context, forwards, req.Upstream)
	if grads == nil && backwardErr != nil {
		return backwardErr
	}
	for i, grad := range grads {
		if results[i].Error != "" {
			continue
		}
		if grad == nil {
			results[i].Error = elementError(backwardErr, i).Error()
			continue
		}
		values, err := gradientValues(grad, single)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].Gradient = values
	}
	if err := printResults(c, results, false); err != nil {
		return err
	}
	if solveErr != nil {
		return solveErr
	}
	return backwardErr
}

func (a *app) observeAction(c *cli.Context) error {
	var req observationRequest
	if err := readRequest(c, &req); err != nil {
		return err
	}
	observations := make([]wahba.Observation, 0, len(req.Observations))
	for _, o := range req.Observations {
		observations = append(observations, wahba.Observation{
			Body:      r3.Vector{X: o.Body[0], Y: o.Body[1], Z: o.Body[2]},
			Reference: r3.Vector{X: o.Reference[0], Y: o.Reference[1], Z: o.Reference[2]},
			Weight:    o.Weight,
		})
	}
	costMatrix, err := wahba.BuildCostMatrix(observations)
	if err != nil {
		return err
	}
	sol, err := a.solver.Solve(costMatrix)
	if err != nil {
		return err
	}
	result := newSolveResult(0, sol)
	result.CostMatrix = costMatrix.RowMajor()
	return printResults(c, []solveResult{result}, true)
}

func (req *matrixRequest) costMatrices(single bool) ([]*linalg.CostMatrix, error) {
	batch := make([]*linalg.CostMatrix, 0, len(req.Matrices))
	for i, data := range req.Matrices {
		var (
			a   *linalg.CostMatrix
			err error
		)
		if single {
			narrow := make([]float32, len(data))
			for j, v := range data {
				narrow[j] = float32(v)
			}
			a, err = linalg.NewCostMatrixFromFloat32(narrow)
		} else {
			a, err = linalg.NewCostMatrix(data)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "matrix %d", i)
		}
		batch = append(batch, a)
	}
	return batch, nil
}

func gradientValues(grad *mat.Dense, single bool) ([]float64, error) {
	if !single {
		return append([]float64(nil), grad.RawMatrix().Data...), nil
	}
	narrow, err := linalg.DenseToFloat32(grad)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(narrow))
	for i, v := range narrow {
		values[i] = float64(v)
	}
	return values, nil
}

// elementError returns the failure of batch element i.
func elementError(err error, i int) error {
	var batchErr *wahba.BatchError
	if errors.As(err, &batchErr) && i < len(batchErr.PerIndex) && batchErr.PerIndex[i] != nil {
		return batchErr.PerIndex[i]
	}
	if err == nil {
		return errors.Errorf("batch element %d has no result", i)
	}
	return err
}

func readRequest(c *cli.Context, v interface{}) error {
	var r io.Reader = c.App.Reader
	if path := c.Path(flagInput); path != "" {
		f, err := os.Open(path) //nolint:gosec
		if err != nil {
			return errors.Wrap(err, "failed to open input")
		}
		defer goutils.UncheckedErrorFunc(f.Close)
		r = f
	}
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return errors.Wrap(err, "failed to decode request")
	}
	return nil
}

func printResults(c *cli.Context, results []solveResult, withMatrix bool) error {
	if c.Bool(flagJSON) {
		encoder := json.NewEncoder(c.App.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	t := table.NewWriter()
	header := table.Row{"#", "Quaternion (w, x, y, z)", "Multiplier", "Cost", "Eigen gap"}
	withGradient := false
	for _, r := range results {
		withGradient = withGradient || r.Gradient != nil
	}
	if withGradient {
		header = append(header, "dL/dA")
	}
	if withMatrix {
		header = append(header, "Axis angle (deg)", "A")
	}
	header = append(header, "Error")
	t.AppendHeader(header)

	for _, r := range results {
		row := table.Row{fmt.Sprintf("%d", r.Index)}
		if r.Quaternion != nil {
			q := r.Quaternion
			row = append(row,
				fmt.Sprintf("%.6f, %.6f, %.6f, %.6f", q[0], q[1], q[2], q[3]),
				fmt.Sprintf("%.6g", r.Multiplier),
				fmt.Sprintf("%.6g", r.Cost),
				fmt.Sprintf("%.3g", r.EigenGap),
			)
		} else {
			row = append(row, "", "", "", "")
		}
		if withGradient {
			row = append(row, formatMatrix(r.Gradient))
		}
		if withMatrix {
			row = append(row, formatAxisAngle(r.AxisAngle), formatMatrix(r.CostMatrix))
		}
		row = append(row, r.Error)
		t.AppendRow(row)
	}
	footer, err := batchSummary(results)
	if err != nil {
		return err
	}
	if footer != nil {
		t.AppendFooter(footer)
	}
	_, err = fmt.Fprintln(c.App.Writer, t.Render())
	return err
}

// batchSummary returns a footer with the median cost and the smallest eigen gap of the
// solved elements, or nil for batches of fewer than two.
func batchSummary(results []solveResult) (table.Row, error) {
	var costs, gaps []float64
	for _, r := range results {
		if r.Quaternion != nil {
			costs = append(costs, r.Cost)
			gaps = append(gaps, r.EigenGap)
		}
	}
	if len(costs) < 2 {
		return nil, nil
	}
	medianCost, err := stats.Median(costs)
	if err != nil {
		return nil, err
	}
	minGap, err := stats.Min(gaps)
	if err != nil {
		return nil, err
	}
	return table.Row{
		"",
		fmt.Sprintf("%d of %d solved", len(costs), len(results)),
		"",
		fmt.Sprintf("median %.6g", medianCost),
		fmt.Sprintf("min %.3g", minGap),
	}, nil
}

func formatAxisAngle(aa *spatialmath.AxisAngle) string {
	if aa == nil {
		return ""
	}
	return fmt.Sprintf("%.3f about (%.4f, %.4f, %.4f)", aa.Theta*180/math.Pi, aa.RX, aa.RY, aa.RZ)
}

func formatMatrix(data []float64) string {
	if len(data) != linalg.Dim*linalg.Dim {
		return ""
	}
	rows := make([]string, linalg.Dim)
	for i := range rows {
		row := data[i*linalg.Dim : (i+1)*linalg.Dim]
		rows[i] = fmt.Sprintf("% .4g % .4g % .4g % .4g", row[0], row[1], row[2], row[3])
	}
	return strings.Join(rows, "\n")
}
