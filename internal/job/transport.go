package job

import "marketdata/internal/apperror"

type GetJobRequest struct {
	ID int64
}

func (r GetJobRequest) Validate() *apperror.AppError {
	if r.ID <= 0 {
		return apperror.New(apperror.BadRequest, "invalid job id")
	}
	return nil
}

// ListJobsRequest filters jobs by source and/or by a symbol contained in the
// job's symbol list.
type ListJobsRequest struct {
	Source string
	Symbol string
}

func (r ListJobsRequest) Validate() *apperror.AppError {
	return nil
}
