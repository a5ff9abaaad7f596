package taxonomy

import "github.com/starford/glanxiv/internal/models"

func sub(code, label string) models.Subcategory {
	return models.Subcategory{Code: code, Label: label}
}

// builtin is the arXiv category tree served when no override file is configured.
var builtin = []models.CategoryNode{
	{
		ID:   "cs",
		Name: "Computer Science",
		Subcategories: []models.Subcategory{
			sub("cs.AI", "Artificial Intelligence"),
			sub("cs.CL", "Computation & Language"),
			sub("cs.CC", "Computational Complexity"),
			sub("cs.CE", "Computational Engineering, Finance, and Science"),
			sub("cs.CG", "Computational Geometry"),
			sub("cs.GT", "Computer Science and Game Theory"),
			sub("cs.CV", "Computer Vision"),
			sub("cs.CY", "Computers and Society"),
			sub("cs.CR", "Cryptography and Security"),
			sub("cs.DS", "Data Structures and Algorithms"),
			sub("cs.DB", "Databases"),
			sub("cs.DL", "Digital Libraries"),
			sub("cs.DM", "Discrete Mathematics"),
			sub("cs.DC", "Distributed, Parallel, and Cluster Computing"),
			sub("cs.ET", "Emerging Technologies"),
			sub("cs.FL", "Formal Languages and Automata Theory"),
			sub("cs.GL", "General Literature"),
			sub("cs.GR", "Graphics"),
			sub("cs.AR", "Hardware Architecture"),
			sub("cs.HC", "Human-Computer Interaction"),
			sub("cs.IR", "Information Retrieval"),
			sub("cs.IT", "Information Theory"),
			sub("cs.LG", "Machine Learning"),
			sub("cs.LO", "Logic in Computer Science"),
			sub("cs.MS", "Mathematical Software"),
			sub("cs.MA", "Multiagent Systems"),
			sub("cs.MM", "Multimedia"),
			sub("cs.NI", "Networking and Internet Architecture"),
			sub("cs.NE", "Neural and Evolutionary Computing"),
			sub("cs.NA", "Numerical Analysis"),
			sub("cs.OS", "Operating Systems"),
			sub("cs.OH", "Other Computer Science"),
			sub("cs.PF", "Performance"),
			sub("cs.PL", "Programming Languages"),
			sub("cs.RO", "Robotics"),
			sub("cs.SE", "Software Engineering"),
			sub("cs.SD", "Sound"),
			sub("cs.SC", "Symbolic Computation"),
			sub("cs.SY", "Systems and Control"),
		},
	},
	{
		ID:   "math",
		Name: "Mathematics",
		Subcategories: []models.Subcategory{
			sub("math.AC", "Commutative Algebra"),
			sub("math.AG", "Algebraic Geometry"),
			sub("math.AP", "Analysis of PDEs"),
			sub("math.AT", "Algebraic Topology"),
			sub("math.CA", "Classical Analysis and ODEs"),
			sub("math.CO", "Combinatorics"),
			sub("math.CT", "Category Theory"),
			sub("math.CV", "Complex Variables"),
			sub("math.DG", "Differential Geometry"),
			sub("math.DS", "Dynamical Systems"),
			sub("math.FA", "Functional Analysis"),
			sub("math.GM", "General Mathematics"),
			sub("math.GR", "Group Theory"),
			sub("math.GT", "Geometric Topology"),
			sub("math.HO", "History and Overview"),
			sub("math.IT", "Information Theory"),
			sub("math.KT", "K-Theory and Homology"),
			sub("math.LO", "Logic"),
			sub("math.MP", "Mathematical Physics"),
			sub("math.NA", "Numerical Analysis"),
			sub("math.NT", "Number Theory"),
			sub("math.OA", "Operator Algebras"),
			sub("math.OC", "Optimization and Control"),
			sub("math.PR", "Probability"),
			sub("math.QA", "Quantum Algebra"),
			sub("math.RT", "Representation Theory"),
			sub("math.RA", "Rings and Algebras"),
			sub("math.SP", "Spectral Theory"),
			sub("math.ST", "Statistics Theory"),
			sub("math.SG", "Symplectic Geometry"),
		},
	},
	{
		ID:   "physics",
		Name: "Physics",
		Subcategories: []models.Subcategory{
			sub("astro-ph", "Astrophysics"),
			sub("cond-mat", "Condensed Matter"),
			sub("gr-qc", "General Relativity and Quantum Cosmology"),
			sub("hep-ex", "High Energy Physics - Experiment"),
			sub("hep-lat", "High Energy Physics - Lattice"),
			sub("hep-ph", "High Energy Physics - Phenomenology"),
			sub("hep-th", "High Energy Physics - Theory"),
			sub("math-ph", "Mathematical Physics"),
			sub("nlin", "Nonlinear Sciences"),
			sub("nucl-ex", "Nuclear Experiment"),
			sub("nucl-th", "Nuclear Theory"),
			sub("physics", "Physics"),
			sub("quant-ph", "Quantum Physics"),
		},
	},
	{
		ID:   "eess",
		Name: "Electrical Engineering & Systems Science",
		Subcategories: []models.Subcategory{
			sub("eess.AS", "Audio and Speech Processing"),
			sub("eess.IV", "Image and Video Processing"),
			sub("eess.SP", "Signal Processing"),
		},
	},
	{
		ID:   "econ",
		Name: "Economics",
		Subcategories: []models.Subcategory{
			sub("econ.EM", "Econometrics"),
		},
	},
	{
		ID:            "q-bio",
		Name:          "Quantitative Biology",
		Subcategories: []models.Subcategory{sub("q-bio", "Quantitative Biology")},
	},
	{
		ID:            "q-fin",
		Name:          "Quantitative Finance",
		Subcategories: []models.Subcategory{sub("q-fin", "Quantitative Finance")},
	},
	{
		ID:            "stat",
		Name:          "Statistics",
		Subcategories: []models.Subcategory{sub("stat", "Statistics")},
	},
}
