package dataset

// Sample returns a small, self-consistent grant dataset. It exercises the
// quirks of the real export: the keyword association references grants by
// bare number, some amounts and institutes are empty, and one association
// row points at a grant that does not exist.
func Sample() MemSource {
	return MemSource{
		"Grant": `GrantNumber,CallDecisionYear,AmountGrantedAllSets,MainDiscipline,Institute
G-100,2018,50000,Biology,ETHZ
G-200,2020,120000,Physics,UZH
G-300,2020,80000,Computer science,EPFL
G-400,2021,200000,Computer science,ETHZ
G-500,2019,,Sociology,UZH
G-600,2022,30000,Sociology,
`,
		"Person": `PersonNumber,FirstName,Surname,Gender
1,Ada,Lovelace,female
2,Alan,Turing,male
3,Grace,Hopper,female
4,Niklaus,Wirth,male
5,Kim,Doe,
`,
		"Institute": `InstituteNumber,Institute
10,ETHZ
20,UZH
30,EPFL
`,
		"GrantToPerson": `GrantNumber,PersonNumber
G-100,1
G-200,2
G-300,3
G-400,3
G-400,4
G-500,5
G-600,1
`,
		"GrantToDiscipline": `GrantNumber,DisciplineId
G-100,1
G-200,2
G-300,3
G-400,3
G-500,4
G-600,4
`,
		"Discipline": `Id,Discipline
1,Biology
2,Physics
3,Computer science
4,Sociology
`,
		"GrantToKeyword": `GrantNumber,KeywordId
100,2
200,6
300,1
300,5
400,1
500,3
500,4
600,3
700,1
`,
		"Keyword": `Id,Word
1,Machine Learning
2,Ecology
3,Gender Studies
4,gender equality
5,Deep learning
6,Quantum optics
`,
	}
}
