package main

// SiteOwner is shown as the navigation brand.
const SiteOwner = "David Whitmore"

var AboutMe = `I build software for people who just want things to work: pharmacy
	pricing tools used by real patients, and small side projects that scratch my own itch.
	I care about clear interfaces, honest error messages, and code the next person can read.`

// Project is one card in the featured projects grid.
type Project struct {
	Title          string
	ImageURL       string
	Width          string
	LinkURL        string
	TechnologyUsed []string
}

// Projects are listed in display order.
var Projects = []Project{
	{
		Title:   "myPrescryptive",
		Width:   "40%",
		LinkURL: "https://my.prescryptive.com",
	},
	{
		Title:   "Farming Game Helper",
		Width:   "40%",
		LinkURL: "https://farming-game-helper.netlify.app/",
	},
}

// Snackbar copy for resume requests.
const (
	ResumeSuccessMessage = "My resume will be automatically emailed to you very soon. Thank you!"
	ResumeErrorMessage   = "Something went wrong. Please try again."
)
