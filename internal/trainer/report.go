package trainer

import "github.com/mfigueredo/clima-alerta/internal/model"

// ClassMetrics holds the per-class diagnostics computed on the held-out split.
type ClassMetrics struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is the held-out evaluation of a freshly trained model. It never
// gates persistence.
type Report struct {
	Normal   ClassMetrics // class 0
	Risk     ClassMetrics // class 1
	Accuracy float64
}

// evaluateHoldout predicts the held-out split and computes per-class
// precision, recall, and F1.
func evaluateHoldout(f *model.Forest, features [][]float64, labels []int) Report {
	if len(labels) == 0 {
		return Report{}
	}

	// confusion[actual][predicted]
	var confusion [2][2]int
	for i, x := range features {
		predicted, _, err := f.Predict(x)
		if err != nil {
			continue
		}
		confusion[labels[i]][predicted]++
	}

	correct := confusion[0][0] + confusion[1][1]
	total := confusion[0][0] + confusion[0][1] + confusion[1][0] + confusion[1][1]

	report := Report{
		Normal: classMetrics(confusion[0][0], confusion[1][0], confusion[0][1]),
		Risk:   classMetrics(confusion[1][1], confusion[0][1], confusion[1][0]),
	}
	report.Normal.Support = confusion[0][0] + confusion[0][1]
	report.Risk.Support = confusion[1][0] + confusion[1][1]
	if total > 0 {
		report.Accuracy = float64(correct) / float64(total)
	}
	return report
}

func classMetrics(tp, fp, fn int) ClassMetrics {
	var m ClassMetrics
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
