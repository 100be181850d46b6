package reconcile

import (
	"fmt"
	"sort"

	"oracleScope/internal/model"
)

// Epoch is one withdrawal window: the submissions accrued since the previous
// payout and the payments that settled it. SettlementBlock is the block of
// the payment event closing the window; billing parameters and prices are
// looked up there.
type Epoch struct {
	Index           int
	From            uint64
	To              uint64
	SettlementBlock uint64
	Submissions     []model.SubmissionRecord
	Payments        []model.PaymentRecord

	// rows holds each submission's index in the full input table, so
	// whole-timeline row analyses can be sliced per epoch.
	rows []int
}

// PartitionEpochs splits the timeline on the sorted, de-duplicated payment
// timestamps. Epoch 0 takes every submission strictly before the first
// boundary; epoch i takes submissions in [boundary(i-1), boundary(i)) and
// payments in (boundary(i-1), boundary(i)]. Submissions after the last
// payout have not been settled and belong to no epoch.
func PartitionEpochs(submissions []model.SubmissionRecord, payments []model.PaymentRecord) ([]Epoch, error) {
	if len(payments) == 0 {
		return nil, nil
	}

	boundaries := paymentBoundaries(payments)
	epochs := make([]Epoch, 0, len(boundaries))

	for i, boundary := range boundaries {
		epoch := Epoch{Index: i, To: boundary}
		if i == 0 {
			epoch.From = boundary
		} else {
			epoch.From = boundaries[i-1]
		}

		for row, record := range submissions {
			if record.Timestamp >= boundary {
				continue
			}
			if i > 0 && record.Timestamp < boundaries[i-1] {
				continue
			}
			epoch.Submissions = append(epoch.Submissions, record)
			epoch.rows = append(epoch.rows, row)
		}
		for _, payment := range payments {
			if payment.TxTimestamp > boundary {
				continue
			}
			if i > 0 && payment.TxTimestamp <= boundaries[i-1] {
				continue
			}
			epoch.Payments = append(epoch.Payments, payment)
		}

		block, err := settlementBlock(payments, boundary)
		if err != nil {
			return nil, err
		}
		epoch.SettlementBlock = block
		epochs = append(epochs, epoch)
	}

	return epochs, nil
}

func paymentBoundaries(payments []model.PaymentRecord) []uint64 {
	seen := make(map[uint64]struct{}, len(payments))
	boundaries := make([]uint64, 0, len(payments))
	for _, payment := range payments {
		if _, ok := seen[payment.TxTimestamp]; ok {
			continue
		}
		seen[payment.TxTimestamp] = struct{}{}
		boundaries = append(boundaries, payment.TxTimestamp)
	}
	sort.Slice(boundaries, func(i, j int) bool { return boundaries[i] < boundaries[j] })
	return boundaries
}

func settlementBlock(payments []model.PaymentRecord, boundary uint64) (uint64, error) {
	for _, payment := range payments {
		if payment.TxTimestamp == boundary {
			return payment.BlockNumber, nil
		}
	}
	return 0, fmt.Errorf("no payment found at boundary timestamp %d", boundary)
}
