package erl

import "fmt"

// Snack is a decoded SNACK request.
type Snack struct {
	Type     SnackType
	ITT      uint32 // target task tag for R2T/DataIN/DataACK SNACK; unused for Status
	BegRun   uint32
	RunLength uint32
}

// RetransmitDataIN maps a Data SNACK's BegRun/RunLength onto the DataSN
// range to replay, clamped to [0, highestEmitted]. The caller looks each
// one up via the command's ReadBook.Retransmit and marks each as a
// within-command recovery retransmit.
func RetransmitDataIN(s Snack, highestEmitted uint32, ackedDataSN uint32) ([]uint32, error) {
	if s.Type != SnackDataIN {
		return nil, fmt.Errorf("erl: not a Data SNACK")
	}
	runLength := s.RunLength
	if runLength == 0 {
		// RunLength==0 means "to the highest DataSN sent so far".
		if s.BegRun > highestEmitted {
			return nil, nil
		}
		runLength = highestEmitted - s.BegRun + 1
	}
	var sns []uint32
	for i := uint32(0); i < runLength; i++ {
		sn := s.BegRun + i
		if sn > highestEmitted {
			break
		}
		if sn <= ackedDataSN {
			// Already acknowledged via Data ACK SNACK; reject the
			// duplicate retransmit ask for this DataSN.
			continue
		}
		sns = append(sns, sn)
	}
	return sns, nil
}

// RetransmitR2T maps an R2T SNACK's BegRun/RunLength onto the R2TSN range
// to resend, clamped to the highest R2T issued so far.
func RetransmitR2T(s Snack, highestR2TSN uint32) ([]uint32, error) {
	if s.Type != SnackR2T {
		return nil, fmt.Errorf("erl: not an R2T SNACK")
	}
	runLength := s.RunLength
	if runLength == 0 {
		if s.BegRun > highestR2TSN {
			return nil, nil
		}
		runLength = highestR2TSN - s.BegRun + 1
	}
	sns := make([]uint32, 0, runLength)
	for i := uint32(0); i < runLength; i++ {
		if s.BegRun+i > highestR2TSN {
			break
		}
		sns = append(sns, s.BegRun+i)
	}
	return sns, nil
}

// ReassignRequest carries a TMF TASK_REASSIGN's recovery parameters.
type ReassignRequest struct {
	ITT        uint32
	ExpDataSN  uint32 // for reads: next DataSN the initiator expects
	NewCID     uint16 // the surviving connection taking over the command
}

// ReassignResult reports the outcome the TMF response carries.
type ReassignResult struct {
	Complete bool
	Reason   string
}

// Reassign validates and applies a TASK_REASSIGN for a command parked by
// ERL=2 connection recovery. Write-direction bookkeeping (next R2T cursor)
// is the caller's responsibility via WriteBook.RecomputeR2TAfterReassign;
// this function only validates the request shape.
func Reassign(req ReassignRequest, commandExists bool, withinCommandRecovery bool) ReassignResult {
	if !commandExists {
		return ReassignResult{Complete: false, Reason: "task does not exist"}
	}
	if !withinCommandRecovery {
		return ReassignResult{Complete: false, Reason: "task not allegiant for reassignment"}
	}
	return ReassignResult{Complete: true}
}
