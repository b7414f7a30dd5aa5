package queue

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Job asks a worker to resolve the years From to To, both included.
type Job struct {
	ID   string `json:"id" validate:"required"`
	From int    `json:"from" validate:"required,min=1"`
	To   int    `json:"to" validate:"required,gtefield=From"`
}

func NewJob(from, to int) (Job, error) {
	id, err := gonanoid.New()
	if err != nil {
		return Job{}, err
	}
	return Job{ID: id, From: from, To: to}, nil
}

func (j Job) Years() []int {
	years := make([]int, 0, j.To-j.From+1)
	for y := j.From; y <= j.To; y++ {
		years = append(years, y)
	}
	return years
}

// Batches cuts the years from to to into jobs of at most size years.
func Batches(from, to, size int) ([]Job, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	var jobs []Job
	for start := from; start <= to; start += size {
		job, err := NewJob(start, min(start+size-1, to))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func EncodeJob(j Job) ([]byte, error) {
	if err := validator.New().Struct(j); err != nil {
		return nil, fmt.Errorf("invalid job: %w", err)
	}
	return json.Marshal(j)
}

func DecodeJob(body []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(body, &j); err != nil {
		return Job{}, fmt.Errorf("failed to decode job: %w", err)
	}
	if err := validator.New().Struct(j); err != nil {
		return Job{}, fmt.Errorf("invalid job %s: %w", j.ID, err)
	}
	return j, nil
}

// PublishJobs encodes and publishes every job on queueName.
func PublishJobs(ch Channel, queueName string, jobs []Job) error {
	for _, job := range jobs {
		data, err := EncodeJob(job)
		if err != nil {
			return err
		}
		if err := PublishFIFO(ch, queueName, data); err != nil {
			return fmt.Errorf("failed to publish job %s: %w", job.ID, err)
		}
	}
	return nil
}
