package classifier

// Category labels what kind of any-type occurrence was classified.
type Category string

const (
	CategoryDocumented     Category = "DOCUMENTED"
	CategoryTestMock       Category = "TEST_MOCK"
	CategoryArrayType      Category = "ARRAY_TYPE"
	CategoryRecordType     Category = "RECORD_TYPE"
	CategoryIndexSignature Category = "INDEX_SIGNATURE"
	CategoryErrorHandling  Category = "ERROR_HANDLING"
	CategoryExternalAPI    Category = "EXTERNAL_API"
	CategoryDynamicConfig  Category = "DYNAMIC_CONFIG"
	CategoryDomainData     Category = "DOMAIN_DATA"
	CategoryUnclassified   Category = "UNCLASSIFIED"
)

// CodeDomain tags which part of the codebase an occurrence lives in.
type CodeDomain string

const (
	DomainUnknown      CodeDomain = "unknown"
	DomainAstrological CodeDomain = "astrological"
	DomainRecipe       CodeDomain = "recipe"
	DomainCampaign     CodeDomain = "campaign"
	DomainService      CodeDomain = "service"
	DomainComponent    CodeDomain = "component"
	DomainTest         CodeDomain = "test"
)

// Context is everything the classifier knows about one occurrence.
type Context struct {
	FilePath           string     `json:"file_path"`
	CodeSnippet        string     `json:"code_snippet"`
	SurroundingLines   []string   `json:"surrounding_lines"`
	HasExistingComment bool       `json:"has_existing_comment"`
	ExistingComment    string     `json:"existing_comment,omitempty"`
	IsInTestFile       bool       `json:"is_in_test_file"`
	Domain             CodeDomain `json:"domain"`
}

// Result is the classification verdict for one occurrence. Pure function of
// its Context; no shared state.
type Result struct {
	IsIntentional         bool     `json:"is_intentional"`
	Category              Category `json:"category"`
	Confidence            float64  `json:"confidence"`
	SuggestedReplacement  string   `json:"suggested_replacement,omitempty"`
	Reasoning             string   `json:"reasoning"`
	RequiresDocumentation bool     `json:"requires_documentation"`
}
