package document

// Schema references for the three documents.
const (
	ExperimentSchema = "http://www.ncbi.nlm.nih.gov/viewvc/v1/trunk/sra/doc/SRA_1-5/SRA.experiment.xsd?view=co"
	RunSchema        = "http://www.ncbi.nlm.nih.gov/viewvc/v1/trunk/sra/doc/SRA_1-5/SRA.run.xsd?view=co"
	SubmissionSchema = "https://www.ncbi.nlm.nih.gov/viewvc/v1/trunk/sra/doc/SRA_1-5/SRA.submission.xsd?view=co"

	xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"
)

// Schemas names the schema reference each document is validated against and
// declares in its noNamespaceSchemaLocation.
type Schemas struct {
	Experiment string `yaml:"experiment"`
	Run        string `yaml:"run"`
	Submission string `yaml:"submission"`
}

// DefaultSchemas returns the SRA 1.5 schema references.
func DefaultSchemas() Schemas {
	return Schemas{Experiment: ExperimentSchema, Run: RunSchema, Submission: SubmissionSchema}
}

// Center holds the submitting center's fixed details.
type Center struct {
	Name         string `yaml:"name"`
	LabName      string `yaml:"lab_name"`
	ContactName  string `yaml:"contact_name"`
	ContactEmail string `yaml:"contact_email"`
	SubmittedBy  string `yaml:"submitted_by"`
	Organism     string `yaml:"organism"`
	SiteTag      string `yaml:"site_tag"`
	SiteValue    string `yaml:"site_value"`
}

// DefaultCenter returns the Broad Institute submission settings.
func DefaultCenter() Center {
	return Center{
		Name:         "BI",
		LabName:      "Genome Sequencing",
		ContactName:  "sra_submissions",
		ContactEmail: "dsde-ops@broadinstitute.org",
		SubmittedBy:  "picard",
		Organism:     "Homo sapiens",
		SiteTag:      "Submission Site",
		SiteValue:    "NCBI_PROTECTED",
	}
}
