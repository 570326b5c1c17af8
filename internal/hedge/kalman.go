package hedge

import "pairs_go/internal/domain"

const (
	// KalmanProcessNoise is Q, added to each covariance diagonal on predict.
	KalmanProcessNoise = 1e-5
	// KalmanMeasurementNoise is R.
	KalmanMeasurementNoise = 1e-3
)

// Kalman tracks [slope, intercept] as a random walk observed through
// PriceA = slope*PriceB + intercept + noise.
type Kalman struct {
	slope     float64
	intercept float64
	p         [2][2]float64
	q, r      float64
}

// NewKalman starts at slope 1, intercept 0 with identity covariance.
func NewKalman() *Kalman {
	return &Kalman{
		slope: 1,
		p:     [2][2]float64{{1, 0}, {0, 1}},
		q:     KalmanProcessNoise,
		r:     KalmanMeasurementNoise,
	}
}

// Estimate advances the filter by one observation, points[i].
// i is only used to pick the observation; each call is one step.
func (k *Kalman) Estimate(i int, points []domain.AlignedPoint) Estimate {
	if i < 0 || i >= len(points) {
		return Estimate{Slope: k.slope, Intercept: k.intercept}
	}
	k.step(points[i].PriceB, points[i].PriceA)
	return Estimate{Slope: k.slope, Intercept: k.intercept}
}

func (k *Kalman) step(x, y float64) {
	// predict
	k.p[0][0] += k.q
	k.p[1][1] += k.q

	// H = [x, 1]
	ph0 := k.p[0][0]*x + k.p[0][1]
	ph1 := k.p[1][0]*x + k.p[1][1]
	s := x*ph0 + ph1 + k.r

	k0 := ph0 / s
	k1 := ph1 / s

	innovation := y - (k.slope*x + k.intercept)
	k.slope += k0 * innovation
	k.intercept += k1 * innovation

	// P = (I - K H) P
	a00 := 1 - k0*x
	a01 := -k0
	a10 := -k1 * x
	a11 := 1 - k1
	p := k.p
	k.p[0][0] = a00*p[0][0] + a01*p[1][0]
	k.p[0][1] = a00*p[0][1] + a01*p[1][1]
	k.p[1][0] = a10*p[0][0] + a11*p[1][0]
	k.p[1][1] = a10*p[0][1] + a11*p[1][1]
}
