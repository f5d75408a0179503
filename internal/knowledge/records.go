package knowledge

var brainRecords = []GuidanceRecord{
	{
		DiseaseName: "Glioma Tumor",
		Confidence:  92.4,
		Causes: []string{
			"Genetic mutations in glial cells",
			"Exposure to ionizing radiation",
			"Family history of brain tumors",
			"Certain genetic syndromes (e.g., neurofibromatosis)",
		},
		Precautions: []string{
			"Regular follow-up MRI scans",
			"Avoid exposure to unnecessary radiation",
			"Maintain a healthy immune system",
			"Monitor neurological symptoms closely",
		},
		Remedies: []string{
			"Surgical resection when possible",
			"Radiation therapy (external beam or stereotactic)",
			"Chemotherapy with temozolomide",
			"Targeted therapy based on molecular markers",
		},
		FoodHabits: []string{
			"Anti-inflammatory foods (turmeric, ginger, berries)",
			"Omega-3 rich foods (salmon, walnuts, flaxseeds)",
			"Leafy greens and cruciferous vegetables",
			"Avoid processed foods and excess sugar",
		},
		Medicines: []string{
			"Temozolomide (chemotherapy agent)",
			"Bevacizumab (anti-angiogenic therapy)",
			"Dexamethasone (to reduce brain swelling)",
			"Levetiracetam (anti-seizure medication)",
		},
	},
	{
		DiseaseName: "Meningioma",
		Confidence:  88.7,
		Causes: []string{
			"Abnormal growth of meningeal cells",
			"Previous radiation to the head",
			"Hormonal factors (more common in women)",
			"Genetic condition: Neurofibromatosis type 2",
		},
		Precautions: []string{
			"Regular neurological examinations",
			"Monitoring tumor growth with periodic MRI",
			"Managing stress and getting adequate rest",
			"Reporting new headaches or vision changes promptly",
		},
		Remedies: []string{
			"Observation (watchful waiting) for small tumors",
			"Surgical removal for symptomatic tumors",
			"Stereotactic radiosurgery (Gamma Knife)",
			"Fractionated radiation therapy",
		},
		FoodHabits: []string{
			"Foods rich in antioxidants (blueberries, dark chocolate)",
			"Vitamin D-rich foods (fortified milk, eggs)",
			"Green tea for its neuroprotective properties",
			"Adequate hydration throughout the day",
		},
		Medicines: []string{
			"Hydroxyurea (for recurrent meningiomas)",
			"Anti-epileptic drugs if seizures occur",
			"Corticosteroids for reducing edema",
			"Pain management medications as needed",
		},
	},
	{
		DiseaseName: "Pituitary Adenoma",
		Confidence:  85.3,
		Causes: []string{
			"Mutations in pituitary cells",
			"Hormonal imbalances",
			"Hereditary conditions (e.g., MEN1 syndrome)",
			"Unknown idiopathic factors",
		},
		Precautions: []string{
			"Regular hormonal level monitoring",
			"Annual eye examinations for visual field assessment",
			"Follow-up MRI scans every 6-12 months",
			"Report changes in vision or headache patterns",
		},
		Remedies: []string{
			"Transsphenoidal surgery",
			"Medication to control hormone production",
			"Radiation therapy for residual tumor",
			"Hormone replacement therapy if needed",
		},
		FoodHabits: []string{
			"Calcium and vitamin D rich foods for bone health",
			"Balanced protein intake",
			"Foods supporting thyroid function (iodine-rich)",
			"Limit caffeine and alcohol consumption",
		},
		Medicines: []string{
			"Cabergoline or Bromocriptine (dopamine agonists)",
			"Octreotide (somatostatin analog)",
			"Levothyroxine (thyroid hormone replacement)",
			"Hydrocortisone (cortisol replacement)",
		},
	},
}

var breastRecords = []GuidanceRecord{
	{
		DiseaseName: "Invasive Ductal Carcinoma (IDC)",
		Confidence:  91.2,
		Causes: []string{
			"Mutations in breast duct cells (BRCA1, BRCA2 genes)",
			"Hormonal factors (prolonged estrogen exposure)",
			"Family history of breast cancer",
			"Obesity and sedentary lifestyle",
		},
		Precautions: []string{
			"Monthly breast self-examinations",
			"Annual mammograms after age 40",
			"Genetic counseling if family history is present",
			"Maintain a healthy weight and exercise regularly",
		},
		Remedies: []string{
			"Surgical options: lumpectomy or mastectomy",
			"Radiation therapy post-surgery",
			"Chemotherapy (neoadjuvant or adjuvant)",
			"Hormonal therapy (Tamoxifen, Aromatase inhibitors)",
		},
		FoodHabits: []string{
			"Cruciferous vegetables (broccoli, cauliflower, kale)",
			"Fiber-rich foods (whole grains, legumes)",
			"Limit alcohol consumption",
			"Soy products in moderation",
		},
		Medicines: []string{
			"Tamoxifen (hormone receptor-positive cancers)",
			"Trastuzumab (HER2-positive cancers)",
			"Cyclophosphamide (chemotherapy)",
			"Anastrozole (aromatase inhibitor)",
		},
	},
	{
		DiseaseName: "Fibroadenoma (Benign)",
		Confidence:  94.1,
		Causes: []string{
			"Hormonal changes (especially estrogen)",
			"Common in women under 30",
			"Hormonal fluctuations during pregnancy",
			"Use of oral contraceptives",
		},
		Precautions: []string{
			"Regular monitoring with ultrasound",
			"Watch for any size changes",
			"Clinical breast examination every 6 months",
			"No treatment needed in most cases",
		},
		Remedies: []string{
			"Observation and regular follow-ups",
			"Surgical excision if large or growing",
			"Cryoablation for small fibroadenomas",
			"Vacuum-assisted excision biopsy",
		},
		FoodHabits: []string{
			"Reduce caffeine intake",
			"Increase dietary fiber",
			"Omega-3 fatty acids (fish oil, chia seeds)",
			"Vitamin E rich foods (almonds, sunflower seeds)",
		},
		Medicines: []string{
			"Usually no medication required",
			"Pain relief with ibuprofen if tender",
			"Evening primrose oil (supplement)",
			"Vitamin E supplements may help with tenderness",
		},
	},
	{
		DiseaseName: "Ductal Carcinoma In Situ (DCIS)",
		Confidence:  87.6,
		Causes: []string{
			"Abnormal cell growth in milk ducts",
			"Genetic predisposition (BRCA mutations)",
			"Hormonal factors",
			"Previous chest radiation therapy",
		},
		Precautions: []string{
			"Regular mammographic screening",
			"Follow-up imaging every 6 months post-treatment",
			"Genetic testing if family history exists",
			"Discuss risk reduction strategies with oncologist",
		},
		Remedies: []string{
			"Lumpectomy with radiation therapy",
			"Mastectomy for extensive DCIS",
			"Hormonal therapy to reduce recurrence risk",
			"Active surveillance in low-risk cases",
		},
		FoodHabits: []string{
			"Anti-inflammatory diet (Mediterranean style)",
			"Green leafy vegetables daily",
			"Limit red meat and processed foods",
			"Turmeric and garlic for anti-cancer properties",
		},
		Medicines: []string{
			"Tamoxifen (5-year course for risk reduction)",
			"Raloxifene (alternative for postmenopausal women)",
			"No chemotherapy typically needed for DCIS",
			"Aromatase inhibitors in select cases",
		},
	},
}

var noTumorRecord = GuidanceRecord{
	DiseaseName: "No Tumor Detected",
	Confidence:  0,
	Causes:      []string{"N/A"},
	Precautions: []string{"Maintain healthy lifestyle", "Regular checkups"},
	Remedies:    []string{"N/A"},
	FoodHabits:  []string{"Balanced diet"},
	Medicines:   []string{"N/A"},
}
