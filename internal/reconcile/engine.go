package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"oracleScope/internal/model"
	"oracleScope/internal/registry"
)

var (
	gweiPerUnit          = decimal.NewFromInt(1_000_000_000)
	microLinkDenominator = decimal.NewFromInt(1_000_000)
)

// Engine computes per-epoch, per-operator reconciliation totals from the
// reconstructed submission and payment tables.
type Engine struct {
	operators registry.Operators
	billing   BillingHistory
	linkUSD   PriceTable
	ethUSD    PriceTable
	logger    *zap.Logger
}

// NewEngine wires the engine's lookups. Both price tables must cover every
// settlement block in the payment history.
func NewEngine(operators registry.Operators, billing BillingHistory, linkUSD, ethUSD PriceTable, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		operators: operators,
		billing:   billing,
		linkUSD:   linkUSD,
		ethUSD:    ethUSD,
		logger:    logger,
	}
}

// Totals partitions the timeline into withdrawal epochs and reconciles each
// one. Output ordering is deterministic: epochs ascend by settlement time and
// every ranked collection sorts descending by value with a name tiebreak.
func (e *Engine) Totals(submissions []model.SubmissionRecord, payments []model.PaymentRecord) (model.Totals, error) {
	epochs, err := PartitionEpochs(submissions, payments)
	if err != nil {
		return model.Totals{}, err
	}

	// Miss streaks are a property of the whole timeline, not of one epoch:
	// a streak crossing a payment boundary keeps counting, so the state
	// machine runs once over the full table and epochs slice its rows.
	missRows := make(map[string][]MissRow, len(e.operators.Transmitters))
	for _, transmitter := range e.operators.Transmitters {
		name := e.operators.Name(transmitter)
		missRows[name] = AnalyzeMisses(StatusTimeline(submissions, name))
	}

	totals := model.Totals{
		Ranges: make([]model.EpochRange, 0, len(epochs)),
		Totals: make([]model.EpochTotals, 0, len(epochs)),
	}
	for _, epoch := range epochs {
		epochTotals, err := e.reconcileEpoch(epoch, missRows)
		if err != nil {
			return model.Totals{}, fmt.Errorf("epoch %d (settled at block %d): %w", epoch.Index, epoch.SettlementBlock, err)
		}
		totals.Ranges = append(totals.Ranges, model.EpochRange{From: epoch.From, To: epoch.To})
		totals.Totals = append(totals.Totals, epochTotals)
		e.logger.Info("reconciled epoch",
			zap.Int("epoch", epoch.Index),
			zap.Uint64("settlementBlock", epoch.SettlementBlock),
			zap.Int("submissions", len(epoch.Submissions)),
			zap.Int("payments", len(epoch.Payments)),
		)
	}
	return totals, nil
}

// operatorFigures accumulates one operator's raw numbers for one epoch
// before ranking.
type operatorFigures struct {
	deviationMean decimal.Decimal
	deviationMax  decimal.Decimal
	fees          decimal.Decimal
	payments      decimal.Decimal
	observations  int
	transmissions int
	misses        MissSummary

	estObservations  decimal.Decimal
	estTransmissions decimal.Decimal
	estRepayments    decimal.Decimal
}

func (e *Engine) reconcileEpoch(epoch Epoch, missRows map[string][]MissRow) (model.EpochTotals, error) {
	params, err := e.billing.Resolve(epoch.SettlementBlock)
	if err != nil {
		return model.EpochTotals{}, err
	}
	linkPrice, err := e.linkUSD.At(epoch.SettlementBlock)
	if err != nil {
		return model.EpochTotals{}, fmt.Errorf("link price: %w", err)
	}
	ethPrice, err := e.ethUSD.At(epoch.SettlementBlock)
	if err != nil {
		return model.EpochTotals{}, fmt.Errorf("eth price: %w", err)
	}

	paid := make(map[string]decimal.Decimal, len(e.operators.Transmitters))
	for _, payment := range epoch.Payments {
		amount := decimal.NewFromFloat(payment.AmountLink).Mul(linkPrice)
		paid[payment.OracleName] = paid[payment.OracleName].Add(amount)
	}

	figures := make(map[string]operatorFigures, len(e.operators.Transmitters))
	for _, transmitter := range e.operators.Transmitters {
		name := e.operators.Name(transmitter)
		fig := e.operatorEpochFigures(epoch, transmitter, name, params, linkPrice, ethPrice, epochMissRows(epoch, missRows[name]))
		fig.payments = paid[name]
		figures[name] = fig
	}

	return rankFigures(figures), nil
}

// epochMissRows slices one operator's whole-timeline miss rows down to the
// epoch's submissions.
func epochMissRows(epoch Epoch, rows []MissRow) []MissRow {
	sliced := make([]MissRow, 0, len(epoch.rows))
	for _, row := range epoch.rows {
		sliced = append(sliced, rows[row])
	}
	return sliced
}

func (e *Engine) operatorEpochFigures(epoch Epoch, transmitter, name string, params model.BillingParams, linkPrice, ethPrice decimal.Decimal, missRows []MissRow) operatorFigures {
	var fig operatorFigures

	deviationSum := decimal.Decimal{}
	feesNative := decimal.Decimal{}
	repaymentsEth := decimal.Decimal{}

	for _, record := range epoch.Submissions {
		deviation := decimal.NewFromFloat(record.DeviationFor(name))
		deviationSum = deviationSum.Add(deviation)
		if deviation.GreaterThan(fig.deviationMax) {
			fig.deviationMax = deviation
		}

		if answer, ok := record.Answers[name]; ok && answer.Status == model.StatusSubmitted {
			fig.observations++
		}
		if record.Submitter != transmitter {
			continue
		}
		fig.transmissions++
		feesNative = feesNative.Add(decimal.NewFromFloat(record.Fee))
		repaymentsEth = repaymentsEth.Add(transmissionRepaymentEth(record, params))
	}

	if rows := len(epoch.Submissions); rows > 0 {
		fig.deviationMean = deviationSum.Div(decimal.NewFromInt(int64(rows)))
	}
	fig.fees = feesNative.Mul(ethPrice)
	fig.misses = SummarizeMisses(missRows)

	perObservation := decimal.NewFromInt(int64(params.LinkGweiPerObservation)).Div(gweiPerUnit)
	perTransmission := decimal.NewFromInt(int64(params.LinkGweiPerTransmission)).Div(gweiPerUnit)
	fig.estObservations = decimal.NewFromInt(int64(fig.observations)).Mul(perObservation).Mul(linkPrice)
	fig.estTransmissions = decimal.NewFromInt(int64(fig.transmissions)).Mul(perTransmission).Mul(linkPrice)

	microLinkPerEth := decimal.NewFromInt(int64(params.MicroLinkPerEth))
	fig.estRepayments = repaymentsEth.Mul(microLinkPerEth).Div(microLinkDenominator).Mul(linkPrice)

	return fig
}

// transmissionRepaymentEth prices one transmission's gas reimbursement in
// native units: reimburse at the paid gas price capped at maximumGasPrice,
// plus half of any savings below reasonableGasPrice.
func transmissionRepaymentEth(record model.SubmissionRecord, params model.BillingParams) decimal.Decimal {
	if record.GasPriceGwei <= 0 {
		return decimal.Decimal{}
	}
	pricePaid := decimal.NewFromFloat(record.GasPriceGwei)
	// fee = gasUsed * gasPrice, both in native units, so gas units fall out.
	gasUnits := decimal.NewFromFloat(record.Fee).Div(pricePaid.Div(gweiPerUnit))

	reimbursed := pricePaid
	maximum := decimal.NewFromInt(int64(params.MaximumGasPrice))
	if pricePaid.GreaterThan(maximum) {
		reimbursed = maximum
	}
	repayment := reimbursed.Div(gweiPerUnit).Mul(gasUnits)

	reasonable := decimal.NewFromInt(int64(params.ReasonableGasPrice))
	if pricePaid.LessThan(reasonable) {
		savings := reasonable.Sub(pricePaid).Div(gweiPerUnit).Mul(gasUnits)
		repayment = repayment.Add(savings.Div(decimal.NewFromInt(2)))
	}
	return repayment
}

func rankFigures(figures map[string]operatorFigures) model.EpochTotals {
	deviations := make(map[string]decimal.Decimal, len(figures))
	maxDeviation := make(map[string]decimal.Decimal, len(figures))
	fees := make(map[string]decimal.Decimal, len(figures))
	payments := make(map[string]decimal.Decimal, len(figures))
	profits := make(map[string]decimal.Decimal, len(figures))
	observations := make(map[string]decimal.Decimal, len(figures))
	missed := make(map[string]decimal.Decimal, len(figures))
	consecutiveMissed := make(map[string]decimal.Decimal, len(figures))
	maxConsecutive := make(map[string]decimal.Decimal, len(figures))
	separateMissed := make(map[string]decimal.Decimal, len(figures))
	separateConsecutive := make(map[string]decimal.Decimal, len(figures))
	transmissions := make(map[string]decimal.Decimal, len(figures))
	estObservations := make(map[string]decimal.Decimal, len(figures))
	estTransmissions := make(map[string]decimal.Decimal, len(figures))
	estRepayments := make(map[string]decimal.Decimal, len(figures))
	estTotal := make(map[string]decimal.Decimal, len(figures))
	diff := make(map[string]decimal.Decimal, len(figures))
	diffPerTransmission := make(map[string]decimal.Decimal, len(figures))
	diffPerObservation := make(map[string]decimal.Decimal, len(figures))

	for name, fig := range figures {
		deviations[name] = fig.deviationMean
		maxDeviation[name] = fig.deviationMax
		fees[name] = fig.fees
		payments[name] = fig.payments
		profits[name] = fig.payments.Sub(fig.fees)
		observations[name] = decimal.NewFromInt(int64(fig.observations))
		missed[name] = decimal.NewFromInt(int64(fig.misses.Missed))
		consecutiveMissed[name] = decimal.NewFromInt(int64(fig.misses.ConsecutiveMissed))
		maxConsecutive[name] = decimal.NewFromInt(int64(fig.misses.MaxConsecutive))
		separateMissed[name] = decimal.NewFromInt(int64(fig.misses.SeparateInstances))
		separateConsecutive[name] = decimal.NewFromInt(int64(fig.misses.SeparateConsecutiveInstances))
		transmissions[name] = decimal.NewFromInt(int64(fig.transmissions))
		estObservations[name] = fig.estObservations
		estTransmissions[name] = fig.estTransmissions
		estRepayments[name] = fig.estRepayments

		total := fig.estObservations.Add(fig.estTransmissions).Add(fig.estRepayments)
		estTotal[name] = total

		delta := total.Sub(fig.payments)
		diff[name] = delta
		if fig.transmissions > 0 {
			diffPerTransmission[name] = delta.Div(decimal.NewFromInt(int64(fig.transmissions)))
		} else {
			diffPerTransmission[name] = decimal.Decimal{}
		}
		if fig.observations > 0 {
			diffPerObservation[name] = delta.Div(decimal.NewFromInt(int64(fig.observations)))
		} else {
			diffPerObservation[name] = decimal.Decimal{}
		}
	}

	return model.EpochTotals{
		Deviations:                          model.Rank(deviations),
		MaxDeviation:                        model.Rank(maxDeviation),
		Fees:                                model.Rank(fees),
		Payments:                            model.Rank(payments),
		Profits:                             model.Rank(profits),
		ObservationsCounts:                  model.Rank(observations),
		MissedObservations:                  model.Rank(missed),
		ConsecutiveMissedObservations:       model.Rank(consecutiveMissed),
		MaxConsecutiveMissedObservations:    model.Rank(maxConsecutive),
		SeparateMissedObservationsInstances: model.Rank(separateMissed),
		SeparateConsecutiveMissedObservationsInstances: model.Rank(separateConsecutive),
		TransmissionsCounts:                            model.Rank(transmissions),
		EstimatedObservationsEarnings:                  model.Rank(estObservations),
		EstimatedTransmissionsEarnings:                 model.Rank(estTransmissions),
		EstimatedTransmissionsRepayments:               model.Rank(estRepayments),
		EstimatedTotalEarnings:                         model.Rank(estTotal),
		DiffFromCalc:                                   model.Rank(diff),
		DiffFromCalcPerTransmission:                    model.Rank(diffPerTransmission),
		DiffFromCalcPerObs:                             model.Rank(diffPerObservation),
	}
}
