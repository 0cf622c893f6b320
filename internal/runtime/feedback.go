package runtime

import (
	"time"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/vars"
)

// resetFeedback zeroes the counters. The derived variables stay undefined
// until a response is recorded.
func (r *run) resetFeedback() {
	g := r.globals
	g.SetRuntime(domain.VarTotalResponses, vars.Int(0))
	g.SetRuntime(domain.VarTotalCorrect, vars.Int(0))
	g.SetRuntime(domain.VarTotalResponseTime, vars.Int(0))
	for _, name := range []string{domain.VarAvgRT, domain.VarAverageResponseTime, domain.VarAccuracy, domain.VarAcc} {
		g.SetRuntime(name, vars.String(domain.Undefined))
	}
}

func (r *run) recordResponse(correct bool, rt time.Duration) {
	g := r.globals
	total := number(g, domain.VarTotalResponses) + 1
	hits := number(g, domain.VarTotalCorrect)
	if correct {
		hits++
	}
	rtSum := number(g, domain.VarTotalResponseTime) + float64(rt)/float64(time.Millisecond)

	g.SetRuntime(domain.VarTotalResponses, vars.Int(int64(total)))
	g.SetRuntime(domain.VarTotalCorrect, vars.Int(int64(hits)))
	g.SetRuntime(domain.VarTotalResponseTime, vars.Float(rtSum))

	acc := vars.Float(100 * hits / total)
	avg := vars.Float(rtSum / total)
	g.SetRuntime(domain.VarAccuracy, acc)
	g.SetRuntime(domain.VarAcc, acc)
	g.SetRuntime(domain.VarAvgRT, avg)
	g.SetRuntime(domain.VarAverageResponseTime, avg)
}

func number(s *vars.Store, name string) float64 {
	v, ok := s.Get(name)
	if !ok {
		return 0
	}
	f, _ := v.Float64()
	return f
}
