package enums

import "fmt"

// Species maps to the species enum in Postgres.
type Species string

const (
	SpeciesDog    Species = "dog"
	SpeciesCat    Species = "cat"
	SpeciesBird   Species = "bird"
	SpeciesFish   Species = "fish"
	SpeciesRabbit Species = "rabbit"
	SpeciesOther  Species = "other"
)

var validSpecies = []Species{
	SpeciesDog,
	SpeciesCat,
	SpeciesBird,
	SpeciesFish,
	SpeciesRabbit,
	SpeciesOther,
}

// IsValid reports whether the value matches the canonical species enum.
func (s Species) IsValid() bool {
	for _, candidate := range validSpecies {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSpecies converts raw input into Species.
func ParseSpecies(value string) (Species, error) {
	for _, candidate := range validSpecies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid species %q", value)
}

// PetSex maps to the pet_sex enum in Postgres.
type PetSex string

const (
	PetSexMale   PetSex = "male"
	PetSexFemale PetSex = "female"
)

var validPetSexes = []PetSex{
	PetSexMale,
	PetSexFemale,
}

func (s PetSex) IsValid() bool {
	for _, candidate := range validPetSexes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePetSex converts raw input into PetSex.
func ParsePetSex(value string) (PetSex, error) {
	for _, candidate := range validPetSexes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sex %q", value)
}

// ListingStatus maps to the listing_status enum in Postgres.
type ListingStatus string

const (
	ListingStatusActive  ListingStatus = "active"
	ListingStatusPaired  ListingStatus = "paired"
	ListingStatusExpired ListingStatus = "expired"
	ListingStatusDeleted ListingStatus = "deleted"
)

var validListingStatuses = []ListingStatus{
	ListingStatusActive,
	ListingStatusPaired,
	ListingStatusExpired,
	ListingStatusDeleted,
}

// String implements fmt.Stringer.
func (s ListingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical listing_status enum.
func (s ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseListingStatus converts raw input into ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	for _, candidate := range validListingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}
