// Package tracker defines Trackers, which track and save data in an
// experiment
package tracker

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/samuelfneumann/modularac/timestep"
)

// Interface Tracker keeps track of experiment data and saves the data
// after the experiment has finished. Each completed episode is passed
// to Track with its original, undiscounted rewards.
type Tracker interface {
	Track(ep timestep.Episode)
	Save() error
}

// LoadData loads and returns the data saved by a Tracker
func LoadData(filename string) ([]float64, error) {
	// Open file
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loaddata: could not open data file: %v", err)
	}
	defer file.Close()

	// Create the decoder and the variable to store the data in
	dec := gob.NewDecoder(file)
	var data []float64

	// Decode the data
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("loaddata: could not decode data: %v", err)
	}

	return data, nil
}

// Save gob encodes data to filename
func Save(filename string, data []float64) error {
	// Open the file to save to
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %v", err)
	}
	defer file.Close()

	// Encode and save the file
	en := gob.NewEncoder(file)
	if err = en.Encode(data); err != nil {
		return fmt.Errorf("save: could not encode data: %v", err)
	}
	return file.Close()
}
