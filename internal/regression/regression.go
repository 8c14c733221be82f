// Package regression isolates the model-fitting technology behind small
// interfaces so the analysis services depend only on fit/predict
// contracts, not on a particular regressor.
package regression

import (
	"gonum.org/v1/gonum/mat"

	"github.com/healthpulse/healthpulse-go/internal/utils"
)

// Model predicts a target value from one feature vector.
type Model interface {
	Predict(features []float64) float64
}

// Fitter trains a Model from feature rows and their targets.
type Fitter interface {
	Fit(features [][]float64, targets []float64) (Model, error)
}

// LeastSquaresModel is a fitted linear model with an intercept term.
type LeastSquaresModel struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// Predict evaluates the fitted hyperplane at the given feature vector.
// Extra features beyond the fitted dimensionality are ignored.
func (m *LeastSquaresModel) Predict(features []float64) float64 {
	y := m.Intercept
	for i, c := range m.Coefficients {
		if i < len(features) {
			y += c * features[i]
		}
	}
	return y
}

// LeastSquaresFitter fits linear models by ordinary least squares using a
// QR decomposition of the design matrix.
type LeastSquaresFitter struct{}

// NewLeastSquaresFitter returns the default Fitter implementation.
func NewLeastSquaresFitter() *LeastSquaresFitter {
	return &LeastSquaresFitter{}
}

// Fit solves min ||Xb - y|| with an implicit intercept column.
// Zero-variance feature columns are collinear with the intercept, so they
// are dropped from the solve and their coefficients pinned to zero. A
// design with no varying column, too few rows, or a singular factorization
// returns a DegenerateInputError.
func (f *LeastSquaresFitter) Fit(features [][]float64, targets []float64) (Model, error) {
	n := len(features)
	if n == 0 || n != len(targets) {
		return nil, utils.NewEmptyInputError("regression fit needs matched non-empty rows")
	}
	p := len(features[0])
	if p == 0 {
		return nil, utils.NewEmptyInputError("regression fit needs at least one feature")
	}
	for _, row := range features {
		if len(row) != p {
			return nil, utils.NewDegenerateInputErrorf("ragged feature row: want %d values, got %d", p, len(row))
		}
	}

	var varying []int
	for j := 0; j < p; j++ {
		for i := 1; i < n; i++ {
			if features[i][j] != features[0][j] {
				varying = append(varying, j)
				break
			}
		}
	}
	if len(varying) == 0 {
		return nil, utils.NewDegenerateInputErrorf("singular design: all %d feature columns constant", p)
	}
	if n < len(varying)+1 {
		return nil, utils.NewDegenerateInputErrorf("underdetermined fit: %d rows for %d coefficients", n, len(varying)+1)
	}

	design := mat.NewDense(n, len(varying)+1, nil)
	for i, row := range features {
		design.Set(i, 0, 1)
		for k, j := range varying {
			design.Set(i, k+1, row[j])
		}
	}
	y := mat.NewVecDense(n, append([]float64(nil), targets...))

	var qr mat.QR
	qr.Factorize(design)

	var coef mat.VecDense
	if err := qr.SolveVecTo(&coef, false, y); err != nil {
		return nil, utils.NewDegenerateInputErrorf("singular design matrix: %v", err)
	}

	model := &LeastSquaresModel{
		Intercept:    coef.AtVec(0),
		Coefficients: make([]float64, p),
	}
	for k, j := range varying {
		model.Coefficients[j] = coef.AtVec(k + 1)
	}
	return model, nil
}
